package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAuthors(t *testing.T) {
	tests := []struct {
		name   string
		first  []string
		last   []string
		emails []string
		want   string
	}{
		{"full rows", []string{"Ada", "Alan"}, []string{"Lovelace", "Turing"}, []string{"ada@example.com", "alan@example.com"},
			"Ada Lovelace <ada@example.com>\nAlan Turing <alan@example.com>"},
		{"name only", []string{"Ada"}, []string{"Lovelace"}, nil, "Ada Lovelace"},
		{"email only", nil, nil, []string{"ada@example.com"}, "<ada@example.com>"},
		{"blank rows skipped", []string{"", " Ada "}, []string{"", "Lovelace"}, []string{" ", ""}, "Ada Lovelace"},
		{"nothing", nil, nil, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatAuthors(tt.first, tt.last, tt.emails))
		})
	}
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/journal/", safeNext("/journal/", "/account/"))
	assert.Equal(t, "/account/", safeNext("", "/account/"))
	assert.Equal(t, "/account/", safeNext("//evil.example.com", "/account/"))
	assert.Equal(t, "/account/", safeNext("/\\evil.example.com", "/account/"))
	assert.Equal(t, "/account/", safeNext("https://evil.example.com/", "/account/"))
}

func TestTemplatesParse(t *testing.T) {
	h, err := New(nil, nil, "AC Revista")
	require.NoError(t, err)
	for _, page := range pages {
		assert.Contains(t, h.templates, page)
	}
}
