package token

import "testing"

func TestLookupIdent(t *testing.T) {
	tests := []struct {
		input string
		want  TokenType
	}{
		{"if", KwIf},
		{"elif", KwElif},
		{"None", KwNone},
		{"none", Identifier},
		{"lambda", KwLambda},
		{"print", Identifier},
		{"_x1", Identifier},
	}
	for _, tt := range tests {
		if got := LookupIdent(tt.input); got != tt.want {
			t.Errorf("LookupIdent(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestEveryTypeHasName(t *testing.T) {
	for tt := Invalid; tt < keyword_end; tt++ {
		switch tt {
		case literal_beg, literal_end, operator_beg, operator_end, augassign_beg, augassign_end, keyword_beg:
			continue
		}
		if _, ok := tokenNames[tt]; !ok {
			t.Errorf("token type %d has no name", int(tt))
		}
	}
	for word, tt := range keywords {
		if !IsKeyword(tt) {
			t.Errorf("%q maps to non-keyword %s", word, tt)
		}
	}
}

func TestClassification(t *testing.T) {
	if !IsAugAssign(OpExpAssign) || IsAugAssign(OpAssign) {
		t.Error("IsAugAssign misclassified")
	}
	if !IsOperator(OpAssign) || !IsOperator(OpXorAssign) || IsOperator(Comma) {
		t.Error("IsOperator misclassified")
	}
	if !IsLiteral(FString) || IsLiteral(KwTrue) {
		t.Error("IsLiteral misclassified")
	}
	if OpSub.String() != "OpSub" || Identation.String() != "Identation" {
		t.Errorf("unexpected names %s %s", OpSub, Identation)
	}
}
