package sanitize

import "testing"

func TestStripHTML(t *testing.T) {
	got := StripHTML("<p>Olá &amp; bem-vindo</p> &lt;script&gt;x&lt;/script&gt;")
	if got != "Olá & bem-vindo x" {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestBubble(t *testing.T) {
	cases := map[string]string{
		"Conheça a **Consultoria X**!":     "Conheça a *Consultoria X*!",
		"## Oferta\nPreço especial":        "Oferta\nPreço especial",
		"linha 1\r\n\r\n\r\n\r\nlinha 2":   "linha 1\n\nlinha 2",
		"  <b>oi</b>  ":                    "oi",
		"*negrito* já no formato WhatsApp": "*negrito* já no formato WhatsApp",
	}
	for in, want := range cases {
		if got := Bubble(in); got != want {
			t.Fatalf("Bubble(%q) = %q, want %q", in, got, want)
		}
	}
}
