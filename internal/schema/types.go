package schema

// Schema represents the introspected relational schema
type Schema struct {
	Name      string
	Tables    []Table
	Functions []Function
}

// Table represents a database table
type Table struct {
	Name       string
	Comment    string
	Columns    []Column
	Relations  []Relation
	Indexes    []Index
	PrimaryKey []string
	Privileges Privileges
}

// Privileges records what the connected role may do with a table
type Privileges struct {
	Select bool
	Insert bool
	Update bool
	Delete bool
}

// AllPrivileges is used by dialects without a privilege catalog
var AllPrivileges = Privileges{Select: true, Insert: true, Update: true, Delete: true}

// Column represents a table column
type Column struct {
	Name          string
	Type          string
	Comment       string
	Nullable      bool
	DefaultValue  *string
	IsUnique      bool
	AutoIncrement bool
	EnumType      string
	EnumValues    []string
}

// Relation represents a foreign key relationship
type Relation struct {
	Constraint   string
	TargetTable  string
	TargetColumn string
	SourceColumn string
	Cardinality  string // 1:1, N:1
}

// Index represents a database index
type Index struct {
	Name     string
	Columns  []string
	IsUnique bool
}

// Function is a set-returning function whose rows are rows of ReturnTable
type Function struct {
	Name        string
	ReturnTable string
	Args        []FunctionArg
}

// FunctionArg is a positional function argument
type FunctionArg struct {
	Name string
	Type string
}

// Cardinality values
const (
	ManyToOne = "N:1"
	OneToOne  = "1:1"
)

// Table returns the table with the given name, or nil
func (s *Schema) Table(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// Column returns the column with the given name, or nil
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// IsPrimaryKey reports whether the table's primary key is exactly the given columns
func (t *Table) IsPrimaryKey(cols ...string) bool {
	if len(cols) == 0 || len(cols) != len(t.PrimaryKey) {
		return false
	}
	for i, c := range cols {
		if t.PrimaryKey[i] != c {
			return false
		}
	}
	return true
}

// IsUniqueKey reports whether col alone identifies a row
func (t *Table) IsUniqueKey(col string) bool {
	if t.IsPrimaryKey(col) {
		return true
	}
	if c := t.Column(col); c != nil && c.IsUnique {
		return true
	}
	for _, idx := range t.Indexes {
		if idx.IsUnique && len(idx.Columns) == 1 && idx.Columns[0] == col {
			return true
		}
	}
	return false
}

// Filter drops tables whose name is in exclude
func (s *Schema) Filter(exclude []string) {
	if len(exclude) == 0 {
		return
	}

	excludeSet := make(map[string]bool)
	for _, tableName := range exclude {
		excludeSet[tableName] = true
	}

	filtered := make([]Table, 0, len(s.Tables))
	for _, table := range s.Tables {
		if !excludeSet[table.Name] {
			filtered = append(filtered, table)
		}
	}
	s.Tables = filtered
}
