package config

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withKeyring(t *testing.T, fn func(service, user string) (string, error)) {
	t.Helper()
	orig := keyringGet
	keyringGet = fn
	t.Cleanup(func() { keyringGet = orig })
}

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)
	withKeyring(t, func(string, string) (string, error) { return "", errors.New("no keyring") })
	setDefaults()

	s := Load()
	assert.Equal(t, "https://api.notion.com/v1", s.Notion.BaseURL)
	assert.Equal(t, "2022-06-28", s.Notion.Version)
	assert.Equal(t, TransportSSE, s.Server.Transport)
	assert.Equal(t, "0.0.0.0:8050", s.Server.Addr())
	assert.Equal(t, 5, s.Retry.MaxAttempts)
	assert.Equal(t, time.Second, s.Retry.BaseDelay)
	assert.Equal(t, 10*time.Second, s.Retry.MaxDelay)
	assert.Equal(t, BackendFile, s.Storage.Backend)
	assert.Empty(t, s.Notion.APIKey)

	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOTION_API_KEY")
}

func TestLoadFallsBackToKeyring(t *testing.T) {
	resetViper(t)
	withKeyring(t, func(service, user string) (string, error) {
		assert.Equal(t, KeyringService, service)
		assert.Equal(t, KeyringUser, user)
		return " secret_from_keyring\n", nil
	})
	setDefaults()

	s := Load()
	assert.Equal(t, "secret_from_keyring", s.Notion.APIKey)
	require.NoError(t, s.Validate())
}

func TestInitBindsDashedFlags(t *testing.T) {
	resetViper(t)
	withKeyring(t, func(string, string) (string, error) { return "", errors.New("no keyring") })

	root := &cobra.Command{Use: "test"}
	root.PersistentFlags().Int("retry-max-attempts", 0, "")
	root.PersistentFlags().String("transport", "", "")
	Init(root)
	require.NoError(t, root.PersistentFlags().Set("retry-max-attempts", "7"))
	require.NoError(t, root.PersistentFlags().Set("transport", "STDIO"))

	s := Load()
	assert.Equal(t, 7, s.Retry.MaxAttempts)
	assert.Equal(t, TransportStdio, s.Server.Transport)
}

func TestValidate(t *testing.T) {
	valid := Settings{
		Notion:  NotionSettings{APIKey: "secret"},
		Server:  ServerSettings{Transport: TransportStdio},
		Storage: StorageSettings{Backend: BackendFile},
		Retry:   RetrySettings{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 5 * time.Second},
	}
	require.NoError(t, valid.Validate())

	cases := map[string]func(*Settings){
		"transport":      func(s *Settings) { s.Server.Transport = "websocket" },
		"backend":        func(s *Settings) { s.Storage.Backend = "s3" },
		"postgres url":   func(s *Settings) { s.Storage.Backend = BackendPostgres },
		"attempts":       func(s *Settings) { s.Retry.MaxAttempts = 0 },
		"delay ordering": func(s *Settings) { s.Retry.MaxDelay = time.Millisecond },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := valid
			mutate(&s)
			assert.Error(t, s.Validate())
		})
	}
}
