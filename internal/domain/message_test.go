package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-api/internal/apperr"
)

func TestNewMessageContent(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		image     string
		wantErr   bool
		wantText  string
		wantImage string
	}{
		{name: "text only", text: "  hello  ", wantText: "hello"},
		{name: "image only", image: "https://cdn.example.com/a.png", wantImage: "https://cdn.example.com/a.png"},
		{name: "both", text: "look", image: "http://x.io/p.jpg", wantText: "look", wantImage: "http://x.io/p.jpg"},
		{name: "neither", wantErr: true},
		{name: "whitespace only", text: "   ", image: " ", wantErr: true},
		{name: "bad image url", text: "hi", image: "not a url", wantErr: true},
		{name: "text at limit", text: strings.Repeat("a", MaxTextLength), wantText: strings.Repeat("a", MaxTextLength)},
		{name: "text over limit", text: strings.Repeat("a", MaxTextLength+1), wantErr: true},
		{name: "multibyte counts characters", text: strings.Repeat("ж", MaxTextLength), wantText: strings.Repeat("ж", MaxTextLength)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewMessageContent(tt.text, tt.image)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperr.Is(err, apperr.KindValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, c.Text)
			assert.Equal(t, tt.wantImage, c.Image)
			assert.Equal(t, tt.wantText != "", c.HasText())
			assert.Equal(t, tt.wantImage != "", c.HasImage())
		})
	}
}

func TestMessageInvolves(t *testing.T) {
	m := Message{SenderID: "a", ReceiverID: "b"}
	assert.True(t, m.Involves("a"))
	assert.True(t, m.Involves("b"))
	assert.False(t, m.Involves("c"))
}

func TestNewPage(t *testing.T) {
	p := NewPage(1, 50, 0)
	assert.Equal(t, 0, p.TotalPages)
	assert.False(t, p.HasNextPage)
	assert.False(t, p.HasPrevPage)

	p = NewPage(2, 10, 25)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNextPage)
	assert.True(t, p.HasPrevPage)
	assert.Equal(t, 10, p.Offset())

	p = NewPage(3, 10, 30)
	assert.Equal(t, 3, p.TotalPages)
	assert.False(t, p.HasNextPage)
}
