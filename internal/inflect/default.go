package inflect

import "github.com/iancoleman/strcase"

// Default names everything after its table and key columns, so
// names stay stable as the schema grows: allUsers, userById, postsByAuthorId.
type Default struct{}

var _ Inflector = Default{}

func (Default) TableType(table string) string      { return pascal(Singular(table)) }
func (Default) ConnectionType(table string) string { return pascal(Plural(table), "connection") }
func (Default) EdgeType(table string) string       { return pascal(Plural(table), "edge") }
func (Default) OrderByType(table string) string    { return pascal(Plural(table), "order_by") }
func (Default) ConditionType(table string) string  { return pascal(Singular(table), "condition") }
func (Default) PatchType(table string) string      { return pascal(Singular(table), "patch") }
func (Default) InputType(table string) string      { return pascal(Singular(table), "input") }
func (Default) EnumType(name string) string        { return pascal(Name(name)) }

func (Default) AggregatesType(table string, kind string) string {
	return pascal(Singular(table), kind, "aggregates")
}

func (Default) Column(column string) string { return camel(Name(column)) }

func (Default) EnumValue(value string) string {
	return Name(strcase.ToScreamingSnake(value))
}

func (Default) OrderByValue(column string, desc bool) string {
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	return Name(strcase.ToScreamingSnake(column)) + "_" + dir
}

func (Default) AllRows(table string) string { return camel("all", Plural(table)) }

func (Default) RowByUniqueKey(table string, keys []string, _ bool) string {
	return camel(Singular(table), "by", byKeys(keys))
}

func (Default) SingleRelation(foreignTable string, keys []string) string {
	return camel(Singular(foreignTable), "by", byKeys(keys))
}

func (Default) SingleRelationBackward(table, _ string, keys []string) string {
	return camel(Singular(table), "by", byKeys(keys))
}

func (Default) ManyRelation(table, _ string, keys []string) string {
	return camel(Plural(table), "by", byKeys(keys))
}

func (Default) ManyToMany(rightTable, junction string, leftKeys, rightKeys []string) string {
	return camel(Plural(rightTable), "by", Singular(junction), byKeys(leftKeys), "and", byKeys(rightKeys))
}

func (Default) Function(name string) string { return camel(Name(name)) }

func (Default) CreateField(table string) string       { return camel("create", Singular(table)) }
func (Default) CreateInputType(table string) string   { return pascal("create", Singular(table), "input") }
func (Default) CreatePayloadType(table string) string { return pascal("create", Singular(table), "payload") }

func (Default) UpdateField(table string, keys []string, _ bool) string {
	return camel("update", Singular(table), "by", byKeys(keys))
}

func (Default) UpdateInputType(table string, keys []string, _ bool) string {
	return pascal("update", Singular(table), "by", byKeys(keys), "input")
}

func (Default) UpdatePayloadType(table string) string { return pascal("update", Singular(table), "payload") }

func (Default) DeleteField(table string, keys []string, _ bool) string {
	return camel("delete", Singular(table), "by", byKeys(keys))
}

func (Default) DeleteInputType(table string, keys []string, _ bool) string {
	return pascal("delete", Singular(table), "by", byKeys(keys), "input")
}

func (Default) DeletePayloadType(table string) string { return pascal("delete", Singular(table), "payload") }

func (Default) PatchField(table string) string { return camel(Singular(table), "patch") }

func (Default) RowField(table string) string { return camel(Singular(table)) }
