package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/peterpham171289-blip/promptmaster/internal/infra/logger"
	"github.com/peterpham171289-blip/promptmaster/pkg/errors"
)

// Store persists exported snapshots as plain JSON files under a base path.
type Store struct {
	basePath string
	logger   *logger.Logger
}

func NewStore(basePath string, log *logger.Logger) *Store {
	return &Store{
		basePath: basePath,
		logger:   log,
	}
}

// Save writes the snapshot and returns its generated id.
func (st *Store) Save(s *Snapshot) (string, error) {
	data, err := Encode(s)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(st.basePath, 0755); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSnapshot, "failed to create snapshot directory")
	}

	id := uuid.New().String()
	path := filepath.Join(st.basePath, id+".json")

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSnapshot, "failed to write snapshot file")
	}

	st.logger.Info("snapshot saved", "id", id, "path", path, "size", len(data))
	return id, nil
}

// Load reads a snapshot back by id.
func (st *Store) Load(id string) (*Snapshot, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, errors.New(errors.ErrCodeInvalidReq, "invalid snapshot id")
	}

	path := filepath.Join(st.basePath, id+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeSnapshot, fmt.Sprintf("snapshot %s not found", id))
		}
		return nil, errors.Wrap(err, errors.ErrCodeSnapshot, "failed to read snapshot file")
	}

	return Decode(data)
}
