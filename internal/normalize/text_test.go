package normalize

import "testing"

func TestEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"  Jane.Doe@Example.COM ", "jane.doe@example.com"},
		{"mailto:ax@x.io", "ax@x.io"},
		{"", ""},
	}
	for _, test := range tests {
		if got := Email(test.in); got != test.want {
			t.Fatalf("Email(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"Public Profile", "public_profile"},
		{" share-button ", "share_button"},
		{"login__button", "login_button"},
		{"--x--", "x"},
		{"public_activity", "public_activity"},
	}
	for _, test := range tests {
		if got := Key(test.in); got != test.want {
			t.Fatalf("Key(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}
