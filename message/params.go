package message

import (
	"github.com/codewiresh/cqlwire/primitive"
)

// Query flag bits, shared by QUERY, EXECUTE and (a subset) BATCH. The flag
// field widens from one byte to an [int] in v5.
const (
	flagValues            = 0x0001
	flagSkipMetadata      = 0x0002
	flagPageSize          = 0x0004
	flagPagingState       = 0x0008
	flagSerialConsistency = 0x0010
	flagDefaultTimestamp  = 0x0020
	flagNamedValues       = 0x0040
	flagWithKeyspace      = 0x0080
	flagNowInSeconds      = 0x0100
)

// QueryParams carries the bound values and execution options of a QUERY or
// EXECUTE. Every optional field rides behind a flag bit and is absent from
// the wire when unset.
type QueryParams struct {
	Consistency primitive.Consistency

	// Values are the bound parameters. When Names is non-empty it runs
	// parallel to Values and the named-values encoding is used.
	Values []primitive.Value
	Names  []string

	SkipMetadata      bool
	PageSize          int32
	PagingState       []byte
	SerialConsistency primitive.SerialConsistency

	HasTimestamp bool
	Timestamp    int64

	// Keyspace and NowInSeconds exist from v5 on.
	Keyspace        string
	HasNowInSeconds bool
	NowInSeconds    int32
}

func (q *QueryParams) flags() int32 {
	var f int32
	if len(q.Values) > 0 {
		f |= flagValues
	}
	if len(q.Names) > 0 {
		f |= flagNamedValues
	}
	if q.SkipMetadata {
		f |= flagSkipMetadata
	}
	if q.PageSize > 0 {
		f |= flagPageSize
	}
	if len(q.PagingState) > 0 {
		f |= flagPagingState
	}
	if q.SerialConsistency != 0 {
		f |= flagSerialConsistency
	}
	if q.HasTimestamp {
		f |= flagDefaultTimestamp
	}
	if q.Keyspace != "" {
		f |= flagWithKeyspace
	}
	if q.HasNowInSeconds {
		f |= flagNowInSeconds
	}
	return f
}

func (q *QueryParams) append(p []byte, v primitive.Version) ([]byte, error) {
	flags := q.flags()
	if v < primitive.Version5 && flags&(flagWithKeyspace|flagNowInSeconds) != 0 {
		return nil, primitive.Constraintf("keyspace/now-in-seconds need protocol v5, have %s", v)
	}
	if len(q.Names) > 0 && len(q.Names) != len(q.Values) {
		return nil, primitive.Constraintf("%d names for %d values", len(q.Names), len(q.Values))
	}
	if err := primitive.CheckShortLen("bound values", len(q.Values)); err != nil {
		return nil, err
	}

	p = primitive.AppendConsistency(p, q.Consistency)
	p = appendQueryFlags(p, v, flags)
	if flags&flagValues != 0 {
		p = primitive.AppendShort(p, uint16(len(q.Values)))
		for i, val := range q.Values {
			if flags&flagNamedValues != 0 {
				p = primitive.AppendString(p, q.Names[i])
			}
			p = primitive.AppendValue(p, val)
		}
	}
	if flags&flagPageSize != 0 {
		p = primitive.AppendInt(p, q.PageSize)
	}
	if flags&flagPagingState != 0 {
		p = primitive.AppendBytes(p, q.PagingState)
	}
	if flags&flagSerialConsistency != 0 {
		p = primitive.AppendConsistency(p, primitive.Consistency(q.SerialConsistency))
	}
	if flags&flagDefaultTimestamp != 0 {
		p = primitive.AppendLong(p, q.Timestamp)
	}
	if flags&flagWithKeyspace != 0 {
		p = primitive.AppendString(p, q.Keyspace)
	}
	if flags&flagNowInSeconds != 0 {
		p = primitive.AppendInt(p, q.NowInSeconds)
	}
	return p, nil
}

func (q *QueryParams) decode(r *primitive.Reader, v primitive.Version) error {
	q.Consistency = r.ReadConsistency()
	flags, err := readQueryFlags(r, v)
	if err != nil {
		return err
	}
	if flags&flagValues != 0 {
		n := int(r.ReadShort())
		for i := 0; i < n && r.Err() == nil; i++ {
			if flags&flagNamedValues != 0 {
				q.Names = append(q.Names, r.ReadString())
			}
			q.Values = append(q.Values, r.ReadValue())
		}
	} else if flags&flagNamedValues != 0 {
		return primitive.Malformedf("named-values flag without values flag")
	}
	if flags&flagSkipMetadata != 0 {
		q.SkipMetadata = true
	}
	if flags&flagPageSize != 0 {
		q.PageSize = r.ReadInt()
	}
	if flags&flagPagingState != 0 {
		q.PagingState = r.ReadBytes()
	}
	if flags&flagSerialConsistency != 0 {
		q.SerialConsistency = primitive.SerialConsistency(r.ReadConsistency())
	}
	if flags&flagDefaultTimestamp != 0 {
		q.HasTimestamp = true
		q.Timestamp = r.ReadLong()
	}
	if flags&flagWithKeyspace != 0 {
		q.Keyspace = r.ReadString()
	}
	if flags&flagNowInSeconds != 0 {
		q.HasNowInSeconds = true
		q.NowInSeconds = r.ReadInt()
	}
	return r.Err()
}

func appendQueryFlags(p []byte, v primitive.Version, flags int32) []byte {
	if v >= primitive.Version5 {
		return primitive.AppendInt(p, flags)
	}
	return append(p, byte(flags))
}

func readQueryFlags(r *primitive.Reader, v primitive.Version) (int32, error) {
	var flags int32
	if v >= primitive.Version5 {
		flags = r.ReadInt()
	} else {
		flags = int32(r.ReadUint8())
	}
	if err := r.Err(); err != nil {
		return 0, err
	}
	known := int32(flagValues | flagSkipMetadata | flagPageSize | flagPagingState |
		flagSerialConsistency | flagDefaultTimestamp | flagNamedValues)
	if v >= primitive.Version5 {
		known |= flagWithKeyspace | flagNowInSeconds
	}
	if flags&^known != 0 {
		return 0, primitive.Malformedf("reserved query flags 0x%X under %s", flags, v)
	}
	return flags, nil
}
