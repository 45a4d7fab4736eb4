package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageResponseText(t *testing.T) {
	resp := &MessageResponse{
		Content: []ContentBlock{
			{Type: "text", Text: "Busy morning at PDX. "},
			{Type: "tool_use", Text: "ignored"},
			{Type: "text", Text: "Mostly Alaska and Delta mainline.\n"},
		},
	}
	assert.Equal(t, "Busy morning at PDX. Mostly Alaska and Delta mainline.", resp.Text())
}

func TestMessageResponseText_Empty(t *testing.T) {
	assert.Equal(t, "", (&MessageResponse{}).Text())
}

func TestToSDKMessages_Roles(t *testing.T) {
	msgs := toSDKMessages([]Message{
		{Role: "user", Content: "summarize this"},
		{Role: "assistant", Content: "sure"},
	})
	assert.Len(t, msgs, 2)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
}
