package settings

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/coppebars/rslauncher/core/state/launcher"
	"github.com/coppebars/rslauncher/internal/hdb"
	"github.com/rs/zerolog/log"
)

// Store exposes the launcher settings and the player profile held in the launcher
// database.
type Store struct {
	db *hdb.Database
}

func NewStore(db *hdb.Database) *Store {
	return &Store{db: db}
}

func (s *Store) state() (*launcher.LauncherState, error) {
	return launcher.ReadState(s.db)
}

func (s *Store) Settings() (launcher.Settings, error) {
	state, err := s.state()
	if err != nil {
		return launcher.Settings{}, err
	}
	return state.Settings, nil
}

func (s *Store) RootPath() (string, error) {
	settings, err := s.Settings()
	if err != nil {
		return "", err
	}
	return settings.RootPath, nil
}

func (s *Store) ChangeRootPath(path string) error {
	if err := launcher.ValidateRootPath(path); err != nil {
		return err
	}
	path = filepath.Clean(path)

	_, err := s.db.ProposeTransitions([]hdb.Transition{
		&launcher.ChangeRootPathTransition{RootPath: path},
	})
	if err != nil {
		return err
	}
	log.Info().Msgf("Changed root path to %s", path)
	return nil
}

func (s *Store) Nickname() (string, error) {
	state, err := s.state()
	if err != nil {
		return "", err
	}
	return state.Nickname, nil
}

func (s *Store) SetNickname(nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if err := launcher.ValidateNickname(nickname); err != nil {
		return err
	}
	_, err := s.db.ProposeTransitions([]hdb.Transition{
		&launcher.SetNicknameTransition{Nickname: nickname},
	})
	return err
}

// InstancePath returns <root>/instances/<slug of name>.
func (s *Store) InstancePath(name string) (string, error) {
	root, err := s.RootPath()
	if err != nil {
		return "", err
	}
	if root == "" {
		return "", fmt.Errorf("root path is not configured")
	}
	return filepath.Join(root, "instances", slug(name)), nil
}

func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' {
			b.WriteRune(r)
			dash = false
		} else if !dash && b.Len() > 0 {
			b.WriteRune('-')
			dash = true
		}
	}
	res := strings.Trim(b.String(), "-.")
	if res == "" {
		return "instance"
	}
	return res
}
