package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/jeepedia/jeepedia/internal/models"
)

// fileDocument is the on-disk layout. Keys match the browser storage keys the
// web client used, so a session document can be exported from either.
type fileDocument struct {
	Token       string          `json:"token,omitempty"`
	SealedToken string          `json:"token_sealed,omitempty"`
	UserDetails json.RawMessage `json:"user_details,omitempty"`
	Redirect    string          `json:"redirectAfterLogin,omitempty"`
}

// FileStore keeps the session in a JSON document on disk.
type FileStore struct {
	path   string
	sealer *Sealer
	log    *zap.Logger
	mu     sync.Mutex
}

// NewFileStore returns a store writing to path. sealer may be nil, in which
// case the token is stored in clear text.
func NewFileStore(path string, sealer *Sealer, log *zap.Logger) *FileStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore{path: path, sealer: sealer, log: log}
}

// Load reads the document. A missing file is an empty session; malformed JSON
// or an unreadable token degrade to an empty session with a warning.
func (fs *FileStore) Load(context.Context) (models.Session, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.read()
	if err != nil {
		return models.Session{}, err
	}
	return fs.decode(doc).Normalize(), nil
}

func (fs *FileStore) SetToken(_ context.Context, token string) error {
	return fs.update(func(doc *fileDocument) error {
		doc.Token, doc.SealedToken = "", ""
		if token == "" {
			return nil
		}
		if fs.sealer == nil {
			doc.Token = token
			return nil
		}
		sealed, err := fs.sealer.Seal(token)
		if err != nil {
			return err
		}
		doc.SealedToken = sealed
		return nil
	})
}

func (fs *FileStore) SetProfile(_ context.Context, p *models.Profile) error {
	return fs.update(func(doc *fileDocument) error {
		if p == nil {
			doc.UserDetails = nil
			return nil
		}
		b, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode profile: %w", err)
		}
		doc.UserDetails = b
		return nil
	})
}

func (fs *FileStore) SetRedirect(_ context.Context, path string) error {
	return fs.update(func(doc *fileDocument) error {
		doc.Redirect = path
		return nil
	})
}

func (fs *FileStore) Clear(context.Context) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func (fs *FileStore) update(fn func(doc *fileDocument) error) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.read()
	if err != nil {
		return err
	}
	if err := fn(&doc); err != nil {
		return err
	}
	return fs.write(doc)
}

func (fs *FileStore) read() (fileDocument, error) {
	var doc fileDocument
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return doc, fmt.Errorf("read session file: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		fs.log.Warn("discarding malformed session file", zap.String("path", fs.path), zap.Error(err))
		return fileDocument{}, nil
	}
	return doc, nil
}

func (fs *FileStore) decode(doc fileDocument) models.Session {
	sess := models.Session{Token: doc.Token, RedirectAfterLogin: doc.Redirect}
	if doc.SealedToken != "" {
		if fs.sealer == nil {
			fs.log.Warn("session token is sealed but no session key is configured")
		} else if token, err := fs.sealer.Open(doc.SealedToken); err != nil {
			fs.log.Warn("cannot open sealed session token", zap.Error(err))
		} else {
			sess.Token = token
		}
	}
	if len(doc.UserDetails) > 0 {
		var p models.Profile
		// the web client stored the profile as a JSON string; accept both
		raw := doc.UserDetails
		var s string
		if json.Unmarshal(raw, &s) == nil {
			raw = []byte(s)
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			fs.log.Warn("discarding malformed cached profile", zap.Error(err))
		} else {
			sess.User = &p
		}
	}
	return sess
}

func (fs *FileStore) write(doc fileDocument) error {
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(fs.path), ".session-*.json")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fs.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
