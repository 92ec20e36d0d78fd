package bolt

import (
	"github.com/neo4j-labs/neo4rs-sub001/internal/boltdb"
	"github.com/neo4j-labs/neo4rs-sub001/internal/packstream"
)

// Message tags, per spec.md §3.
const (
	tagHello    = 0x01
	tagGoodbye  = 0x02
	tagReset    = 0x0F
	tagRun      = 0x10
	tagBegin    = 0x11
	tagCommit   = 0x12
	tagRollback = 0x13
	tagDiscard  = 0x2F
	tagPull     = 0x3F
	tagRoute    = 0x66
	tagLogon    = 0x6A

	tagSuccess = 0x70
	tagRecord  = 0x71
	tagIgnored = 0x7E
	tagFailure = 0x7F
)

// Struct tags carried in records, per spec.md §3.
const (
	tagNode                = 0x4E
	tagRelationship        = 0x52
	tagUnboundRelationship = 0x72
	tagPath                = 0x50
	tagDate                = 0x44
	tagTime                = 0x54
	tagLocalTime           = 0x74
	tagDateTimeLegacy      = 0x46
	tagDateTime            = 0x49
	tagLocalDateTime       = 0x64
	tagDuration            = 0x45
	tagPoint2D             = 0x58
	tagPoint3D             = 0x59
)

// version negotiation proposals, highest-preferred first, per spec.md §6.
var proposedVersions = [4]uint32{0x00000404, 0x00000304, 0x00000104, 0x00000004}

var handshakeMagic = [4]byte{0x60, 0x60, 0xB0, 0x17}

// txMeta builds the extra map shared by BEGIN and RUN, respecting the
// per-version field availability described in spec.md §4.B and resolved
// per the 4.4 behavior (db + imp_user) in spec.md §9.
func txMeta(minor int, cfg boltdb.TxConfig) map[string]any {
	extra := map[string]any{}
	if cfg.Mode == "r" {
		extra["mode"] = "r"
	}
	if len(cfg.Bookmarks) > 0 {
		bm := make([]any, len(cfg.Bookmarks))
		for i, b := range cfg.Bookmarks {
			bm[i] = b
		}
		extra["bookmarks"] = bm
	}
	if cfg.HasTimeout {
		extra["tx_timeout"] = cfg.TimeoutMillis
	}
	if len(cfg.Metadata) > 0 {
		extra["tx_metadata"] = cfg.Metadata
	}
	if cfg.DatabaseName != "" {
		extra["db"] = cfg.DatabaseName
	}
	if minor >= 4 && cfg.ImpersonatedUser != "" {
		extra["imp_user"] = cfg.ImpersonatedUser
	}
	return extra
}

func newHelloMsg(minor int, principal, credentials, userAgent string, routingCtx map[string]any) packstream.Struct {
	extra := map[string]any{
		"scheme":      "basic",
		"principal":   principal,
		"credentials": credentials,
		"user_agent":  userAgent,
	}
	if minor >= 1 {
		if routingCtx != nil {
			extra["routing"] = routingCtx
		} else {
			extra["routing"] = nil
		}
	}
	return packstream.Struct{Tag: tagHello, Fields: []any{extra}}
}

func newGoodbyeMsg() packstream.Struct {
	return packstream.Struct{Tag: tagGoodbye, Fields: nil}
}

func newResetMsg() packstream.Struct {
	return packstream.Struct{Tag: tagReset, Fields: nil}
}

// newRunMsg builds a RUN message. extra carries the caller's own
// query-level metadata (spec.md §3's Query.extra) and is merged into the
// same map as the transaction extras, the caller's keys winning on
// collision since they're the more specific of the two.
func newRunMsg(minor int, cypher string, params, extra map[string]any, cfg boltdb.TxConfig) packstream.Struct {
	if params == nil {
		params = map[string]any{}
	}
	meta := txMeta(minor, cfg)
	for k, v := range extra {
		meta[k] = v
	}
	return packstream.Struct{Tag: tagRun, Fields: []any{cypher, params, meta}}
}

func newBeginMsg(minor int, cfg boltdb.TxConfig) packstream.Struct {
	return packstream.Struct{Tag: tagBegin, Fields: []any{txMeta(minor, cfg)}}
}

func newCommitMsg() packstream.Struct {
	return packstream.Struct{Tag: tagCommit, Fields: nil}
}

func newRollbackMsg() packstream.Struct {
	return packstream.Struct{Tag: tagRollback, Fields: nil}
}

func newPullMsg(n int64, qid int64) packstream.Struct {
	extra := map[string]any{"n": n}
	if qid != -1 {
		extra["qid"] = qid
	}
	return packstream.Struct{Tag: tagPull, Fields: []any{extra}}
}

func newDiscardMsg(n int64, qid int64) packstream.Struct {
	extra := map[string]any{"n": n}
	if qid != -1 {
		extra["qid"] = qid
	}
	return packstream.Struct{Tag: tagDiscard, Fields: []any{extra}}
}
