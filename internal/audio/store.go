// Package audio persists synthesis artifacts and per-agent reference
// recordings on the local filesystem.
package audio

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Artifact references one persisted synthesis result. The inline copy lets a
// client play audio immediately without a second round trip.
type Artifact struct {
	Filename     string
	URLPath      string
	InlineBase64 string
}

// Store writes synthesis artifacts to a shared directory. Filenames are unique
// per call, never per agent, so concurrent turns cannot overwrite each other
// and no locking is needed.
type Store struct {
	dir string
	log zerolog.Logger
}

func NewStore(dir string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	return &Store{dir: dir, log: log.With().Str("component", "audio_store").Logger()}, nil
}

// Persist writes one synthesis result and returns its reference plus an
// inline base64 copy. Headerless PCM is wrapped into a WAV container first.
func (s *Store) Persist(audio []byte, agentID string) (Artifact, error) {
	wav := EnsureWAV(audio, 24000)

	name := fmt.Sprintf("synth_%s_%s.wav", agentID, shortID())
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		return Artifact{}, fmt.Errorf("write artifact %s: %w", name, err)
	}

	s.log.Debug().Str("file", name).Int("bytes", len(wav)).Msg("artifact persisted")
	return Artifact{
		Filename:     name,
		URLPath:      "/audio/" + name,
		InlineBase64: base64.StdEncoding.EncodeToString(wav),
	}, nil
}

// FilePath resolves a previously returned artifact filename for serving.
// Rejects anything that could escape the artifact directory.
func (s *Store) FilePath(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", fmt.Errorf("invalid artifact name %q", filename)
	}
	path := filepath.Join(s.dir, filename)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("artifact %s: %w", filename, err)
	}
	return path, nil
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// RefStore keeps per-agent reference recordings uploaded for voice cloning.
// One recording per agent, addressed as "<agent-id><ext>".
type RefStore struct {
	dir string
}

func NewRefStore(dir string) (*RefStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create voice ref dir: %w", err)
	}
	return &RefStore{dir: dir}, nil
}

// AssetRef is the filename the clone backend knows the agent's recording by.
func (r *RefStore) AssetRef(agentID string) string {
	return agentID + ".wav"
}

// Save stores the uploaded reference recording, replacing any previous one.
func (r *RefStore) Save(agentID string, src io.Reader) (string, error) {
	name := r.AssetRef(agentID)
	dst, err := os.Create(filepath.Join(r.dir, name))
	if err != nil {
		return "", fmt.Errorf("create voice ref %s: %w", name, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("write voice ref %s: %w", name, err)
	}
	return name, nil
}

// Remove deletes the agent's reference recording if present.
func (r *RefStore) Remove(agentID string) error {
	err := os.Remove(filepath.Join(r.dir, r.AssetRef(agentID)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove voice ref: %w", err)
	}
	return nil
}
