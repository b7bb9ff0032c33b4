package message

import (
	"fmt"

	"github.com/codewiresh/cqlwire/primitive"
	"github.com/codewiresh/cqlwire/values"
)

// ResultKind is the secondary discriminant of a RESULT body.
type ResultKind int32

const (
	KindVoid         ResultKind = 0x0001
	KindRows         ResultKind = 0x0002
	KindSetKeyspace  ResultKind = 0x0003
	KindPrepared     ResultKind = 0x0004
	KindSchemaChange ResultKind = 0x0005
)

func (k ResultKind) String() string {
	switch k {
	case KindVoid:
		return "VOID"
	case KindRows:
		return "ROWS"
	case KindSetKeyspace:
		return "SET_KEYSPACE"
	case KindPrepared:
		return "PREPARED"
	case KindSchemaChange:
		return "SCHEMA_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// VoidResult is a RESULT with nothing to say: the statement succeeded.
type VoidResult struct{}

func (*VoidResult) OpCode() primitive.OpCode { return primitive.OpResult }

func (*VoidResult) appendBody(p []byte, _ primitive.Version) ([]byte, error) {
	return primitive.AppendInt(p, int32(KindVoid)), nil
}

// SetKeyspaceResult acknowledges a USE statement.
type SetKeyspaceResult struct {
	Keyspace string
}

func (*SetKeyspaceResult) OpCode() primitive.OpCode { return primitive.OpResult }

func (m *SetKeyspaceResult) appendBody(p []byte, _ primitive.Version) ([]byte, error) {
	p = primitive.AppendInt(p, int32(KindSetKeyspace))
	return primitive.AppendString(p, m.Keyspace), nil
}

// Schema change targets.
const (
	TargetKeyspace  = "KEYSPACE"
	TargetTable     = "TABLE"
	TargetType      = "TYPE"
	TargetFunction  = "FUNCTION"
	TargetAggregate = "AGGREGATE"
)

// SchemaChange describes one DDL change: CREATED, UPDATED or DROPPED
// against a target object. Object is empty for keyspace-level changes;
// Arguments carries signature types for functions and aggregates.
type SchemaChange struct {
	Change    string
	Target    string
	Keyspace  string
	Object    string
	Arguments []string
}

func (c *SchemaChange) append(p []byte, _ primitive.Version) ([]byte, error) {
	p = primitive.AppendString(p, c.Change)
	p = primitive.AppendString(p, c.Target)
	p = primitive.AppendString(p, c.Keyspace)
	switch c.Target {
	case TargetKeyspace:
	case TargetTable, TargetType:
		p = primitive.AppendString(p, c.Object)
	case TargetFunction, TargetAggregate:
		p = primitive.AppendString(p, c.Object)
		p = primitive.AppendStringList(p, c.Arguments)
	default:
		return nil, primitive.Constraintf("unknown schema change target %q", c.Target)
	}
	return p, nil
}

func (c *SchemaChange) decode(r *primitive.Reader, _ primitive.Version) error {
	c.Change = r.ReadString()
	c.Target = r.ReadString()
	c.Keyspace = r.ReadString()
	if err := r.Err(); err != nil {
		return err
	}
	switch c.Target {
	case TargetKeyspace:
	case TargetTable, TargetType:
		c.Object = r.ReadString()
	case TargetFunction, TargetAggregate:
		c.Object = r.ReadString()
		c.Arguments = r.ReadStringList()
	default:
		return primitive.Malformedf("unknown schema change target %q", c.Target)
	}
	return r.Err()
}

// SchemaChangeResult is the RESULT acknowledging a DDL statement.
type SchemaChangeResult struct {
	SchemaChange
}

func (*SchemaChangeResult) OpCode() primitive.OpCode { return primitive.OpResult }

func (m *SchemaChangeResult) appendBody(p []byte, v primitive.Version) ([]byte, error) {
	p = primitive.AppendInt(p, int32(KindSchemaChange))
	return m.SchemaChange.append(p, v)
}

// Rows metadata flag bits.
const (
	rowsGlobalTableSpec = 0x0001
	rowsHasMorePages    = 0x0002
	rowsNoMetadata      = 0x0004
	rowsMetadataChanged = 0x0008
)

// ColumnSpec names and types one result or bind column.
type ColumnSpec struct {
	Keyspace string
	Table    string
	Name     string
	Type     values.ColumnType
}

// RowsMetadata describes the columns of a Rows result. When NoMetadata is
// set only ColumnCount is meaningful and the consumer must already know the
// column types (it asked for that with skip-metadata).
type RowsMetadata struct {
	ColumnCount int32
	PagingState []byte

	// MetadataID replaces the id the client cached when the server
	// detects a schema drift. v5 only.
	MetadataID []byte

	NoMetadata bool

	// GlobalKeyspace/GlobalTable are set when every column shares one
	// table spec; per-column keyspace/table are empty then.
	GlobalKeyspace string
	GlobalTable    string
	Columns        []ColumnSpec
}

func (m *RowsMetadata) flags() int32 {
	var f int32
	if m.GlobalKeyspace != "" {
		f |= rowsGlobalTableSpec
	}
	if len(m.PagingState) > 0 {
		f |= rowsHasMorePages
	}
	if m.NoMetadata {
		f |= rowsNoMetadata
	}
	if len(m.MetadataID) > 0 {
		f |= rowsMetadataChanged
	}
	return f
}

func (m *RowsMetadata) append(p []byte, v primitive.Version) ([]byte, error) {
	flags := m.flags()
	if v < primitive.Version5 && flags&rowsMetadataChanged != 0 {
		return nil, primitive.Constraintf("metadata id needs protocol v5, have %s", v)
	}
	count := m.ColumnCount
	if !m.NoMetadata {
		count = int32(len(m.Columns))
	}
	p = primitive.AppendInt(p, flags)
	p = primitive.AppendInt(p, count)
	if flags&rowsHasMorePages != 0 {
		p = primitive.AppendBytes(p, m.PagingState)
	}
	if flags&rowsMetadataChanged != 0 {
		p = primitive.AppendShortBytes(p, m.MetadataID)
	}
	if m.NoMetadata {
		return p, nil
	}
	if flags&rowsGlobalTableSpec != 0 {
		p = primitive.AppendString(p, m.GlobalKeyspace)
		p = primitive.AppendString(p, m.GlobalTable)
	}
	for _, col := range m.Columns {
		if flags&rowsGlobalTableSpec == 0 {
			p = primitive.AppendString(p, col.Keyspace)
			p = primitive.AppendString(p, col.Table)
		}
		p = primitive.AppendString(p, col.Name)
		p = values.AppendType(p, col.Type)
	}
	return p, nil
}

func (m *RowsMetadata) decode(r *primitive.Reader, v primitive.Version) error {
	flags := r.ReadInt()
	count := r.ReadInt()
	if err := r.Err(); err != nil {
		return err
	}
	if count < 0 {
		return primitive.Malformedf("negative column count %d", count)
	}
	if v < primitive.Version5 && flags&rowsMetadataChanged != 0 {
		return primitive.Malformedf("metadata-changed flag under %s", v)
	}
	m.ColumnCount = count
	if flags&rowsHasMorePages != 0 {
		m.PagingState = r.ReadBytes()
	}
	if flags&rowsMetadataChanged != 0 {
		m.MetadataID = r.ReadShortBytes()
	}
	if flags&rowsNoMetadata != 0 {
		m.NoMetadata = true
		return r.Err()
	}
	if flags&rowsGlobalTableSpec != 0 {
		m.GlobalKeyspace = r.ReadString()
		m.GlobalTable = r.ReadString()
	}
	m.Columns = make([]ColumnSpec, 0, count)
	for i := int32(0); i < count && r.Err() == nil; i++ {
		var col ColumnSpec
		if flags&rowsGlobalTableSpec == 0 {
			col.Keyspace = r.ReadString()
			col.Table = r.ReadString()
		}
		col.Name = r.ReadString()
		col.Type = values.ReadType(r)
		m.Columns = append(m.Columns, col)
	}
	return r.Err()
}

// RowsResult carries row data as raw cells; interpreting them needs the
// column types from Metadata (or, under skip-metadata, from the prepared
// statement the consumer holds).
type RowsResult struct {
	Metadata RowsMetadata
	Rows     [][]primitive.Value
}

func (*RowsResult) OpCode() primitive.OpCode { return primitive.OpResult }

func (m *RowsResult) appendBody(p []byte, v primitive.Version) ([]byte, error) {
	p = primitive.AppendInt(p, int32(KindRows))
	p, err := m.Metadata.append(p, v)
	if err != nil {
		return nil, err
	}
	if err := primitive.CheckIntLen("rows", len(m.Rows)); err != nil {
		return nil, err
	}
	p = primitive.AppendInt(p, int32(len(m.Rows)))
	for _, row := range m.Rows {
		for _, cell := range row {
			if cell.IsNotSet() {
				return nil, primitive.Constraintf("not-set cell in a rows result")
			}
			p = primitive.AppendValue(p, cell)
		}
	}
	return p, nil
}

// DecodeRow interprets row i's cells against the given column types,
// which must come from Metadata.Columns or, under skip-metadata, from the
// prepared statement the consumer holds. Null cells decode to nil.
func (m *RowsResult) DecodeRow(i int, types []values.ColumnType) ([]any, error) {
	if i < 0 || i >= len(m.Rows) {
		return nil, primitive.Constraintf("row %d of %d", i, len(m.Rows))
	}
	row := m.Rows[i]
	if len(types) != len(row) {
		return nil, primitive.Constraintf("%d column types for %d cells", len(types), len(row))
	}
	out := make([]any, 0, len(row))
	for j, cell := range row {
		if cell.IsNull() {
			out = append(out, nil)
			continue
		}
		v, err := values.Unmarshal(types[j], cell.Data)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", j, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeRows(r *primitive.Reader, v primitive.Version) (Message, error) {
	m := &RowsResult{}
	if err := m.Metadata.decode(r, v); err != nil {
		return nil, err
	}
	count := r.ReadInt()
	if err := r.Err(); err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, primitive.Malformedf("negative row count %d", count)
	}
	cols := m.Metadata.ColumnCount
	for i := int32(0); i < count && r.Err() == nil; i++ {
		row := make([]primitive.Value, 0, cols)
		for j := int32(0); j < cols && r.Err() == nil; j++ {
			cell := r.ReadValue()
			if cell.IsNotSet() {
				return nil, primitive.Malformedf("not-set cell in row %d", i)
			}
			row = append(row, cell)
		}
		m.Rows = append(m.Rows, row)
	}
	return m, r.Err()
}

// PreparedMetadata describes the bind variables of a prepared statement,
// including which of them form the partition key (v4 on).
type PreparedMetadata struct {
	PKIndexes      []uint16
	GlobalKeyspace string
	GlobalTable    string
	Columns        []ColumnSpec
}

func (m *PreparedMetadata) append(p []byte, v primitive.Version) ([]byte, error) {
	var flags int32
	if m.GlobalKeyspace != "" {
		flags |= rowsGlobalTableSpec
	}
	p = primitive.AppendInt(p, flags)
	p = primitive.AppendInt(p, int32(len(m.Columns)))
	if v >= primitive.Version4 {
		p = primitive.AppendInt(p, int32(len(m.PKIndexes)))
		for _, idx := range m.PKIndexes {
			p = primitive.AppendShort(p, idx)
		}
	}
	if flags&rowsGlobalTableSpec != 0 {
		p = primitive.AppendString(p, m.GlobalKeyspace)
		p = primitive.AppendString(p, m.GlobalTable)
	}
	for _, col := range m.Columns {
		if flags&rowsGlobalTableSpec == 0 {
			p = primitive.AppendString(p, col.Keyspace)
			p = primitive.AppendString(p, col.Table)
		}
		p = primitive.AppendString(p, col.Name)
		p = values.AppendType(p, col.Type)
	}
	return p, nil
}

func (m *PreparedMetadata) decode(r *primitive.Reader, v primitive.Version) error {
	flags := r.ReadInt()
	count := r.ReadInt()
	if err := r.Err(); err != nil {
		return err
	}
	if count < 0 {
		return primitive.Malformedf("negative column count %d", count)
	}
	if v >= primitive.Version4 {
		n := r.ReadInt()
		if r.Err() == nil && n < 0 {
			return primitive.Malformedf("negative pk count %d", n)
		}
		for i := int32(0); i < n && r.Err() == nil; i++ {
			m.PKIndexes = append(m.PKIndexes, r.ReadShort())
		}
	}
	if flags&rowsGlobalTableSpec != 0 {
		m.GlobalKeyspace = r.ReadString()
		m.GlobalTable = r.ReadString()
	}
	m.Columns = make([]ColumnSpec, 0, count)
	for i := int32(0); i < count && r.Err() == nil; i++ {
		var col ColumnSpec
		if flags&rowsGlobalTableSpec == 0 {
			col.Keyspace = r.ReadString()
			col.Table = r.ReadString()
		}
		col.Name = r.ReadString()
		col.Type = values.ReadType(r)
		m.Columns = append(m.Columns, col)
	}
	return r.Err()
}

// PreparedResult answers a Prepare with the statement id plus the bind and
// result metadata the client needs to issue Executes.
type PreparedResult struct {
	ID []byte

	// ResultMetadataID identifies the result metadata version. v5 only.
	ResultMetadataID []byte

	Metadata       PreparedMetadata
	ResultMetadata RowsMetadata
}

func (*PreparedResult) OpCode() primitive.OpCode { return primitive.OpResult }

func (m *PreparedResult) appendBody(p []byte, v primitive.Version) ([]byte, error) {
	if err := primitive.CheckShortLen("statement id", len(m.ID)); err != nil {
		return nil, err
	}
	p = primitive.AppendInt(p, int32(KindPrepared))
	p = primitive.AppendShortBytes(p, m.ID)
	if v >= primitive.Version5 {
		p = primitive.AppendShortBytes(p, m.ResultMetadataID)
	} else if len(m.ResultMetadataID) != 0 {
		return nil, primitive.Constraintf("result metadata id needs protocol v5, have %s", v)
	}
	p, err := m.Metadata.append(p, v)
	if err != nil {
		return nil, err
	}
	return m.ResultMetadata.append(p, v)
}

func decodePrepared(r *primitive.Reader, v primitive.Version) (Message, error) {
	m := &PreparedResult{ID: r.ReadShortBytes()}
	if v >= primitive.Version5 {
		m.ResultMetadataID = r.ReadShortBytes()
	}
	if err := m.Metadata.decode(r, v); err != nil {
		return nil, err
	}
	if err := m.ResultMetadata.decode(r, v); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeResult(r *primitive.Reader, v primitive.Version) (Message, error) {
	kind := ResultKind(r.ReadInt())
	if err := r.Err(); err != nil {
		return nil, err
	}
	switch kind {
	case KindVoid:
		return &VoidResult{}, nil
	case KindRows:
		return decodeRows(r, v)
	case KindSetKeyspace:
		return &SetKeyspaceResult{Keyspace: r.ReadString()}, nil
	case KindPrepared:
		return decodePrepared(r, v)
	case KindSchemaChange:
		m := &SchemaChangeResult{}
		if err := m.SchemaChange.decode(r, v); err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, primitive.Malformedf("unknown result kind 0x%04X", int32(kind))
}
