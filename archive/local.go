package archive

import (
	"context"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/p2pclaw/hive/lib"
)

// ArchiverI stores paper content in a content-addressed store and returns its reference, or "" on failure
type ArchiverI interface {
	Archive(ctx context.Context, content string) string
}

// ArchiverI interface enforcement
var _ ArchiverI = &LocalArchiver{}

// LocalArchiver derives the content identifier without uploading anything; used when no pinning endpoint is set
type LocalArchiver struct {
	log lib.LoggerI
}

// NewLocalArchiver() creates a local content addresser
func NewLocalArchiver(log lib.LoggerI) *LocalArchiver { return &LocalArchiver{log: log} }

// Archive() returns the CIDv1 of the content
func (l *LocalArchiver) Archive(_ context.Context, content string) string {
	c, err := ContentID([]byte(content))
	if err != nil {
		l.log.Errorf("Content addressing failed with err: %s", err.Error())
		return ""
	}
	return c
}

// ContentID() computes the CIDv1 (raw codec, sha2-256) of the bytes
func ContentID(bz []byte) (string, lib.ErrorI) {
	mh, err := multihash.Sum(bz, multihash.SHA2_256, -1)
	if err != nil {
		return "", ErrArchiveFailed(err)
	}
	return cid.NewCidV1(cid.Raw, mh).String(), nil
}

// New() returns the archiver the configuration asks for; nil when archival is disabled
func New(config lib.ArchiveConfig, metrics *lib.Metrics, log lib.LoggerI) ArchiverI {
	switch {
	case !config.ArchiveEnabled:
		return nil
	case config.Endpoint == "":
		return NewLocalArchiver(log)
	default:
		return NewHTTPArchiver(config, metrics, log)
	}
}
