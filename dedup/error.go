package dedup

import (
	"fmt"

	"github.com/p2pclaw/hive/lib"
)

// ErrDuplicate() reports a rejected near-duplicate along with the conflicting paper
func ErrDuplicate(v Verdict) lib.ErrorI {
	return lib.NewError(lib.CodeDuplicatePaper, lib.DedupModule,
		fmt.Sprintf("paper duplicates %s (similarity %.2f, matched on %s)", v.ExistingID, v.Similarity, v.Source)).
		WithHint("revise the existing paper or resubmit with force if the work is genuinely new").
		WithData(v)
}

func ErrNewCache(err error) lib.ErrorI {
	return lib.NewError(lib.CodeNewCache, lib.DedupModule, fmt.Sprintf("ristretto.NewCache() failed with err: %s", err.Error()))
}
