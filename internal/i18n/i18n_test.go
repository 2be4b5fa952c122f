package i18n

import "testing"

func TestCataloguesAreComplete(t *testing.T) {
	for id := range messagesEN {
		if _, ok := messagesZH[id]; !ok {
			t.Errorf("message %q missing from zh catalogue", id)
		}
	}
	for id := range messagesZH {
		if _, ok := messagesEN[id]; !ok {
			t.Errorf("message %q missing from en catalogue", id)
		}
	}
}

func TestTranslate(t *testing.T) {
	defer SetLanguage(LangEnglish)

	SetLanguage(LangEnglish)
	got := T(ErrUnexpectedToken, 3, 7, "+")
	if want := "Unexpected token on line 3, column 7: '+'"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	SetLanguageFromString("zh-CN")
	if GetLanguage() != LangChinese {
		t.Fatalf("language = %s, want zh", GetLanguage())
	}
	if got := T(ErrMissingBody, 1, 2); got == T("no.such.message") || got == "" {
		t.Errorf("unexpected translation %q", got)
	}

	if got := T("no.such.message"); got != "no.such.message" {
		t.Errorf("missing id should echo back, got %q", got)
	}
}
