package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carriazoe12/lexia-chatbot/internal/domain"
)

func TestAutoTitle(t *testing.T) {
	cases := []struct {
		name   string
		prompt string
		want   string
	}{
		{
			name:   "short prompt kept verbatim",
			prompt: "Hola",
			want:   "Hola",
		},
		{
			name:   "spanish question under the limit",
			prompt: "¿Qué dice el artículo 1902 del Código Civil?",
			want:   "¿Qué dice el artículo 1902 del Código Civil?",
		},
		{
			name:   "exactly at the limit keeps no marker",
			prompt: strings.Repeat("a", MaxTitleLength),
			want:   strings.Repeat("a", MaxTitleLength),
		},
		{
			name:   "one over the limit truncates and marks",
			prompt: strings.Repeat("a", MaxTitleLength+1),
			want:   strings.Repeat("a", MaxTitleLength) + "...",
		},
		{
			name:   "multibyte runes count as single characters",
			prompt: strings.Repeat("ñ", MaxTitleLength+10),
			want:   strings.Repeat("ñ", MaxTitleLength) + "...",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, autoTitle(tc.prompt))
		})
	}
}

func TestTrimContext(t *testing.T) {
	build := func(n int) []domain.Message {
		out := make([]domain.Message, n)
		for i := range out {
			out[i] = domain.Message{Role: domain.RoleUser, Content: string(rune('a' + i))}
		}
		return out
	}

	t.Run("short buffers pass through", func(t *testing.T) {
		msgs := build(MaxContextMessages)
		require.Equal(t, msgs, trimContext(msgs))
	})

	t.Run("long buffers keep only the newest window in order", func(t *testing.T) {
		msgs := build(13)
		got := trimContext(msgs)
		require.Len(t, got, MaxContextMessages)
		require.Equal(t, msgs[3], got[0])
		require.Equal(t, msgs[12], got[len(got)-1])
	})
}

func TestNewStatePreservesCredentialAndProvider(t *testing.T) {
	st := newState("sk-algo", domain.ProviderGemini)

	require.Equal(t, "sk-algo", st.APIKey)
	require.Equal(t, domain.ProviderGemini, st.Provider)
	require.Equal(t, AssistantTitle, st.ActiveConversationTitle)
	require.Empty(t, st.Conversations)
	require.Empty(t, st.Messages)
	require.False(t, st.ConversationsLoaded)
	require.False(t, st.HistoryLoaded)
}

func TestNewStateDefaultsProvider(t *testing.T) {
	st := newState("", "")
	require.Equal(t, domain.ProviderOpenAI, st.Provider)
}
