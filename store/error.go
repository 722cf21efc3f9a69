package store

import (
	"fmt"

	"github.com/p2pclaw/hive/lib"
)

func ErrOpenDB(err error) lib.ErrorI {
	return lib.NewError(lib.CodeOpenDB, lib.StoreModule, fmt.Sprintf("openDB() failed with err: %s", err.Error()))
}

func ErrCloseDB(err error) lib.ErrorI {
	return lib.NewError(lib.CodeCloseDB, lib.StoreModule, fmt.Sprintf("closeDB() failed with err: %s", err.Error()))
}

func ErrStoreSet(err error) lib.ErrorI {
	return lib.NewError(lib.CodeStoreSet, lib.StoreModule, fmt.Sprintf("store.set() failed with err: %s", err.Error()))
}

func ErrStoreGet(err error) lib.ErrorI {
	return lib.NewError(lib.CodeStoreGet, lib.StoreModule, fmt.Sprintf("store.get() failed with err: %s", err.Error()))
}

func ErrStoreIterate(err error) lib.ErrorI {
	return lib.NewError(lib.CodeStoreIterate, lib.StoreModule, fmt.Sprintf("store.iterate() failed with err: %s", err.Error()))
}

func ErrNoReplicas() lib.ErrorI {
	return lib.NewError(lib.CodeNoReplicas, lib.StoreModule, "the graph has no replicas")
}

func ErrNoWriteAck(path string, err error) lib.ErrorI {
	msg := fmt.Sprintf("no replica acknowledged the write to %s", path)
	if err != nil {
		msg = fmt.Sprintf("%s, last err: %s", msg, err.Error())
	}
	return lib.NewError(lib.CodeNoWriteAck, lib.StoreModule, msg).WithHint("the write may be retried")
}

func ErrEncodeField(field string, err error) lib.ErrorI {
	return lib.NewError(lib.CodeEncodeField, lib.StoreModule, fmt.Sprintf("encoding field %s failed with err: %s", field, err.Error()))
}

func ErrDecodeField(err error) lib.ErrorI {
	return lib.NewError(lib.CodeDecodeField, lib.StoreModule, fmt.Sprintf("decoding field failed with err: %s", err.Error()))
}

func ErrInvalidStorePath(path string) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidStorePath, lib.StoreModule, fmt.Sprintf("invalid store path or field %q", path))
}
