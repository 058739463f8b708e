package security

import "testing"

// TestNoteSanitizer_Sanitize はメモからタグが除去されることを検証する。
func TestNoteSanitizer_Sanitize(t *testing.T) {
	sanitizer := NewNoteSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "プレーンテキストはそのまま", input: "Client call", want: "Client call"},
		{name: "前後の空白を除去", input: "  review PR  \n", want: "review PR"},
		{name: "空文字列", input: "", want: ""},
		{name: "装飾タグは除去し中身を残す", input: "<b>bold</b> text", want: "bold text"},
		{name: "scriptは中身ごと除去", input: "hi<script>alert(1)</script>", want: "hi"},
		{name: "アンパサンドはエスケープしない", input: "R&D sync", want: "R&D sync"},
		{name: "イベント属性付きタグ", input: `<img src=x onerror="alert(1)">done`, want: "done"},
		{name: "マルチバイト文字", input: "<p>打ち合わせ</p>", want: "打ち合わせ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestNoteSanitizer_Idempotent は同一入力に対して同一出力を返すことを検証する。
func TestNoteSanitizer_Idempotent(t *testing.T) {
	sanitizer := NewNoteSanitizer()
	input := "<em>fix</em> login bug"

	first := sanitizer.Sanitize(input)
	second := sanitizer.Sanitize(first)
	if first != second {
		t.Errorf("not idempotent: %q then %q", first, second)
	}
}

// TestNoteSanitizer_ImplementsInterface はインターフェースを満たすことを検証する。
func TestNoteSanitizer_ImplementsInterface(t *testing.T) {
	var _ NoteSanitizer = NewNoteSanitizer()
}
