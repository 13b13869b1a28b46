package transfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/conneroisu/pagebuilder/internal/errors"
	"github.com/conneroisu/pagebuilder/internal/validation"
)

// File describes a file offered for import. Handle is an io.Reader for
// streamed uploads or a path string for files on disk; when it is nil the
// Name is used as the path.
type File struct {
	Name     string
	MIMEType string
	Size     int64
	Handle   any
}

// FileSaver persists an exported design.
type FileSaver interface {
	Save(ctx context.Context, filename string, data []byte) error
}

// FileReader loads the contents of an imported file.
type FileReader interface {
	Read(ctx context.Context, file File) ([]byte, error)
}

// ReaderFunc adapts a function to FileReader.
type ReaderFunc func(ctx context.Context, file File) ([]byte, error)

// Read implements FileReader.
func (f ReaderFunc) Read(ctx context.Context, file File) ([]byte, error) {
	return f(ctx, file)
}

// DirSaver writes exports into a directory.
type DirSaver struct {
	Dir string
}

// Save implements FileSaver.
func (d DirSaver) Save(_ context.Context, filename string, data []byte) error {
	path := filepath.Join(d.Dir, filepath.Base(filename))
	if err := validation.ValidatePath(path); err != nil {
		return errors.NewFileError(errors.ErrCodeFileWrite, "invalid export path").
			WithContext("path", path).WithContext("reason", err.Error())
	}

	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return errors.NewIOError(errors.ErrCodeFileWrite, "failed to create export directory", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.NewIOError(errors.ErrCodeFileWrite, "failed to write export file", err).
			WithContext("path", path)
	}

	return nil
}

// WriterSaver streams exports to a writer such as an HTTP response.
// BeforeWrite, when set, runs with the filename before any bytes are written.
type WriterSaver struct {
	Writer      io.Writer
	BeforeWrite func(filename string)
}

// Save implements FileSaver.
func (w WriterSaver) Save(_ context.Context, filename string, data []byte) error {
	if w.BeforeWrite != nil {
		w.BeforeWrite(filename)
	}
	if _, err := w.Writer.Write(data); err != nil {
		return errors.NewIOError(errors.ErrCodeFileWrite, "failed to write export", err)
	}

	return nil
}

// HandleReader reads io.Reader handles and falls back to OSReader for
// paths.
var HandleReader = ReaderFunc(func(ctx context.Context, file File) ([]byte, error) {
	if r, ok := file.Handle.(io.Reader); ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.NewIOError(errors.ErrCodeFileRead, "Failed to read file", err)
		}
		return data, nil
	}

	return OSReader{}.Read(ctx, file)
})

// OSReader reads files from disk. The path is Handle when it is a string,
// otherwise Name.
type OSReader struct{}

// Read implements FileReader.
func (OSReader) Read(_ context.Context, file File) ([]byte, error) {
	path := file.Name
	if p, ok := file.Handle.(string); ok && p != "" {
		path = p
	}
	if err := validation.ValidatePath(path); err != nil {
		return nil, errors.NewFileError(errors.ErrCodeFileRead, "invalid import path").
			WithContext("path", path).WithContext("reason", err.Error())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileRead, "Failed to read file", err).
			WithContext("path", path)
	}

	return data, nil
}

// FileFromPath stats path and describes it for Import.
func FileFromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, errors.NewIOError(errors.ErrCodeFileRead, "Failed to read file", err).
			WithContext("path", path)
	}
	if info.IsDir() {
		return File{}, errors.NewFileError(errors.ErrCodeFileRead, fmt.Sprintf("%s is a directory", path))
	}

	return File{Name: filepath.Base(path), Size: info.Size(), Handle: path}, nil
}
