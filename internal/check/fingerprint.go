package check

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/go-git/go-billy/v5"

	"github.com/nao1215/datalens/internal/config"
	"github.com/nao1215/datalens/internal/imaging"
)

const (
	chunkSize = 1024 * 1024

	// quickBlock is how much of each end of a file the quick strategy reads.
	quickBlock = 64 * 1024

	// quickTailThreshold is the size a file must exceed before its tail is
	// read. Files between quickBlock and this size are hashed by their head
	// only.
	quickTailThreshold = 2 * quickBlock

	// errorHashPrefix marks perceptual fingerprints of undecodable files.
	errorHashPrefix = "error-"
)

// Fingerprint computes the fingerprint of the file at path.
// The perceptual strategy never fails: undecodable files get a fingerprint
// derived from the path itself.
func Fingerprint(fs billy.Filesystem, path string, strategy config.HashStrategy) (string, error) {
	switch strategy {
	case config.HashSHA256:
		return hashSHA256(fs, path)
	case config.HashQuick:
		return hashQuick(fs, path)
	case config.HashPerceptual:
		return hashPerceptual(fs, path), nil
	default:
		return "", fmt.Errorf("%w: %s", config.ErrUnknownHashStrategy, strategy)
	}
}

func hashSHA256(fs billy.Filesystem, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, chunkSize)); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashQuick(fs billy.Filesystem, path string) (string, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return "", err
	}
	size := info.Size()

	f, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	h.Write([]byte(strconv.FormatInt(size, 10)))

	head := make([]byte, quickBlock)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	h.Write(head[:n])

	if size > quickTailThreshold {
		if _, err := f.Seek(-quickBlock, io.SeekEnd); err != nil {
			return "", fmt.Errorf("failed to seek %s: %w", path, err)
		}
		tail := make([]byte, quickBlock)
		n, err := io.ReadFull(f, tail)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		h.Write(tail[:n])
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashPerceptual(fs billy.Filesystem, path string) string {
	img, _, err := imaging.Decode(fs, path)
	if err != nil {
		sum := sha256.Sum256([]byte(path))
		return errorHashPrefix + hex.EncodeToString(sum[:])
	}
	return imaging.FormatHash(imaging.DifferenceHash(img))
}
