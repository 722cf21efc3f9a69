package archive

import (
	"fmt"

	"github.com/p2pclaw/hive/lib"
)

// This file defines error objects for the Archive module

func ErrArchiveFailed(err error) lib.ErrorI {
	return lib.NewError(lib.CodeArchiveFailed, lib.ArchiveModule, fmt.Sprintf("archive failed with err: %s", err.Error()))
}

func ErrArchiveResponse(status int, body string) lib.ErrorI {
	return lib.NewError(lib.CodeArchiveResponse, lib.ArchiveModule, fmt.Sprintf("archive endpoint answered %d: %s", status, body))
}
