package textnorm

import "testing"

func TestFold(t *testing.T) {
	cases := []struct {
		name  string
		input string
		sep   string
		want  string
	}{
		{"header with accent", "Endereço", "_", "endereco"},
		{"collapses inner spaces", "  Horário   Início ", "_", "horario_inicio"},
		{"query key", "Praça  XV,  Centro", " ", "praca xv, centro"},
		{"empty", "   ", "_", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Fold(tc.input, tc.sep); got != tc.want {
				t.Fatalf("Fold(%q) = %q; want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestStripDiacritics(t *testing.T) {
	if got := StripDiacritics("São Cristóvão"); got != "Sao Cristovao" {
		t.Fatalf("StripDiacritics = %q", got)
	}
}
