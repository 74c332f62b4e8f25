package content

import (
	"strings"
	"testing"
)

func TestComposePrompt(t *testing.T) {
	got := composePrompt("Write a friendly follow-up about our demo.", ContactContext{
		Name:        "Ana",
		Phone:       "+5511999998888",
		StepNumber:  1,
		LastInbound: "sounds interesting",
	})

	for _, want := range []string{
		"Write a friendly follow-up about our demo.",
		"Contact name: Ana",
		"Follow-up number: 2",
		"Their last message: sounds interesting",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("prompt missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "+5511999998888") {
		t.Fatalf("phone number must not leak into the prompt")
	}
}

func TestComposePromptMinimalContext(t *testing.T) {
	got := composePrompt("p", ContactContext{Phone: "+100", StepNumber: 0})
	if strings.Contains(got, "Contact name") || strings.Contains(got, "Their last message") {
		t.Fatalf("empty fields must be omitted:\n%s", got)
	}
	if !strings.Contains(got, "Follow-up number: 1") {
		t.Fatalf("expected step number, got:\n%s", got)
	}
}
