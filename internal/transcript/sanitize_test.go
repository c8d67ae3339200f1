package transcript

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"plain text untouched",
			"Agent: how can I help?",
			"Agent: how can I help?",
		},
		{
			"whitespace collapsed",
			"Agent:   how can\n\nI help?\t",
			"Agent: how can I help?",
		},
		{
			"html stripped",
			"<div><p>Agent: hello</p><p>Customer: hi</p></div>",
			"Agent: hello Customer: hi",
		},
		{
			"script content dropped",
			"<p>Agent: hello</p><script>var x = 1;</script><p>bye</p>",
			"Agent: hello bye",
		},
		{
			"style content dropped",
			"<style>p { color: red }</style>real text",
			"real text",
		},
		{
			"empty",
			"",
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
