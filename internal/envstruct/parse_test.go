package envstruct_test

import (
	"testing"

	"github.com/beforeigo/beforeigo/internal/envstruct"
	"github.com/beforeigo/beforeigo/internal/errors"
	"github.com/stretchr/testify/require"
)

type config struct {
	Addr      string `env:"BEFOREIGO_ADDR" envDefault:"localhost:4000"`
	SQLiteURL string `env:"BEFOREIGO_SQLITE_URL"`
	ignored   string //nolint:unused // verifies unexported fields are skipped
}

func TestPopulate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		env       map[string]string
		wantAddr  string
		wantDB    string
		wantError error
	}{
		{
			name:     "all set",
			env:      map[string]string{"BEFOREIGO_ADDR": "localhost:8080", "BEFOREIGO_SQLITE_URL": ":memory:"},
			wantAddr: "localhost:8080",
			wantDB:   ":memory:",
		},
		{
			name:     "default applies",
			env:      map[string]string{"BEFOREIGO_SQLITE_URL": "./beforeigo.sqlite"},
			wantAddr: "localhost:4000",
			wantDB:   "./beforeigo.sqlite",
		},
		{
			name:      "missing without default",
			env:       map[string]string{},
			wantError: envstruct.ErrEnvNotSet,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			lookupEnv := func(key string) (string, bool) {
				v, ok := tt.env[key]
				return v, ok
			}

			var cfg config
			err := envstruct.Populate(&cfg, lookupEnv)

			if tt.wantError != nil {
				require.ErrorIs(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantAddr, cfg.Addr)
			require.Equal(t, tt.wantDB, cfg.SQLiteURL)
		})
	}
}

func TestPopulate_rejectsNonStruct(t *testing.T) {
	t.Parallel()

	lookupEnv := func(string) (string, bool) { return "", false }

	var s string
	require.True(t, errors.Is(envstruct.Populate(&s, lookupEnv), envstruct.ErrInvalidValue))
	require.True(t, errors.Is(envstruct.Populate(s, lookupEnv), envstruct.ErrInvalidValue))
}
