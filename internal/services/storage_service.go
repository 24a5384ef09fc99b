package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// StorageService writes uploaded and signed files to local disk. Files
// keep the client-supplied original name, so uploading two files with
// the same name overwrites the first.
type StorageService struct {
	uploadsDir string
	signedDir  string
	logger     *zap.Logger
}

func NewStorageService(uploadsDir, signedDir string, logger *zap.Logger) (*StorageService, error) {
	for _, dir := range []string{uploadsDir, signedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}
	return &StorageService{
		uploadsDir: uploadsDir,
		signedDir:  signedDir,
		logger:     logger.With(zap.String("service", "storage_service")),
	}, nil
}

func (ss *StorageService) UploadsDir() string { return ss.uploadsDir }
func (ss *StorageService) SignedDir() string  { return ss.signedDir }

// Store writes the uploaded bytes under the uploads directory using the
// original filename verbatim and returns the stored path.
func (ss *StorageService) Store(r io.Reader, name string) (string, error) {
	path := filepath.Join(ss.uploadsDir, filepath.Base(name))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer f.Close()

	n, err := io.Copy(f, r)
	if err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", path, err)
	}

	ss.logger.Info("File stored",
		zap.String("path", path),
		zap.Int64("bytes", n))
	return path, nil
}

// StoreSigned writes a signed artifact fetched from the provider under
// the signed directory.
func (ss *StorageService) StoreSigned(name string, content []byte) (string, error) {
	path := filepath.Join(ss.signedDir, filepath.Base(name))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write signed file %s: %w", path, err)
	}

	ss.logger.Info("Signed file stored", zap.String("path", path))
	return path, nil
}

func (ss *StorageService) Read(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: file %s", ErrNotFound, path)
		}
		return nil, err
	}
	return content, nil
}
