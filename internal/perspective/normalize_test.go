package perspective

import "testing"

func TestNormalizeStripsHashtagMarker(t *testing.T) {
	got := Normalize("this is #outrageous news")
	if got != "this is outrageous news" {
		t.Errorf("got %q", got)
	}
}

func TestNormalizeReplacesMentions(t *testing.T) {
	got := Normalize("@someone you are wrong, ask @someone_else")
	if got != "user you are wrong, ask user" {
		t.Errorf("got %q", got)
	}
}

func TestNormalizeRemovesURLs(t *testing.T) {
	got := Normalize("read this https://example.com/a?b=c now")
	if got != "read this  now" {
		t.Errorf("got %q", got)
	}
}

func TestNormalizeCombined(t *testing.T) {
	got := Normalize("#hot take from @user1: http://t.co/xyz is a scam")
	if got != "hot take from user:  is a scam" {
		t.Errorf("got %q", got)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	if got := Normalize(""); got != "" {
		t.Errorf("got %q", got)
	}
}
