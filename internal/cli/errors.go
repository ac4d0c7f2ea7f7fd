package cli

import (
	"errors"
	"fmt"

	"storyloom/internal/analyze"
	"storyloom/internal/editor"
	"storyloom/internal/mutate"
	"storyloom/internal/store"
)

type usageError struct {
	msg string
}

func (e usageError) Error() string { return e.msg }

func errUsage(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// hintsFor suggests a follow-up command for common failures.
func hintsFor(err error) []string {
	var (
		dup       *mutate.DuplicateIDError
		notMain   *mutate.NotMainNodeError
		notFound  mutate.NotFoundError
		structErr *analyze.StructureError
		stErr     *store.StorageError
	)
	switch {
	case errors.As(err, &dup):
		return []string{"pick another id; list ids with: storyloom story show <campaign> <story>"}
	case errors.As(err, &notMain):
		return []string{"only main nodes own choices; convert with: storyloom node set <campaign> <story> " + notMain.NodeID + " --type main"}
	case errors.As(err, &notFound):
		return []string{"list node ids with: storyloom story show <campaign> <story>"}
	case errors.As(err, &structErr):
		return []string{"see all problems with: storyloom story validate <campaign> <story>"}
	case errors.Is(err, store.ErrNotFound) && errors.As(err, &stErr):
		if stErr.Story == "" {
			return []string{"list campaigns with: storyloom campaigns list"}
		}
		return []string{"list stories with: storyloom story list " + stErr.Campaign}
	case errors.Is(err, store.ErrInvalidName):
		return []string{"campaign and story names must not be empty, start with '.', or contain path separators"}
	case errors.Is(err, editor.ErrUnsavedChanges):
		return []string{"save first, or discard the changes"}
	}
	return nil
}

func errNodeNotFound(id string) error {
	return mutate.NotFoundError{Kind: "node", ID: id}
}
