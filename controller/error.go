package controller

import (
	"fmt"

	"github.com/p2pclaw/hive/lib"
)

func ErrUnknownRelayKind(kind lib.RelayKind) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidRelay, lib.MainModule, fmt.Sprintf("unknown relay kind %q", kind))
}

func ErrRelayAuthorMismatch(sender, author string) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidRelay, lib.MainModule,
		fmt.Sprintf("relay sender %s announced a paper authored by %s", sender, author))
}

func ErrEmptyRelayPaper() lib.ErrorI {
	return lib.NewError(lib.CodeInvalidRelay, lib.MainModule, "paper relay carries no paper")
}
