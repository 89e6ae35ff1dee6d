package speech

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTurns(t *testing.T) {
	text := "Intro music\n" +
		"**Host A**: Welcome back.\n" +
		"Host 2: Glad to be here.\n" +
		"It was a long week.\n" +
		"**Host B**\n" +
		"host a. Let's begin"

	turns := ParseTurns(text)
	assert.Equal(t, []Turn{
		{Speaker: HostA, Text: "Welcome back."},
		{Speaker: HostB, Text: "Glad to be here. It was a long week."},
		{Speaker: HostA, Text: "Let's begin"},
	}, turns)
	assert.Equal(t, "Host B", turns[1].Speaker.Label())
}

func TestParseTurnsUntagged(t *testing.T) {
	assert.Nil(t, ParseTurns("Just a plain consensus.\nNo hosts here."))
	assert.Nil(t, ParseTurns(""))
}
