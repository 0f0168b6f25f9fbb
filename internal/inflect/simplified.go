package inflect

import "strings"

// Simplified shortens the default names where the schema makes them unambiguous:
// users, user(id), author, posts, updateUser.
type Simplified struct {
	Default
}

var _ Inflector = Simplified{}

// baseName strips an _id suffix from a single key column; "" when not applicable
func baseName(keys []string) string {
	if len(keys) != 1 {
		return ""
	}
	key := keys[0]
	for _, suffix := range []string{"_id", "Id", "_uuid"} {
		if strings.HasSuffix(key, suffix) && len(key) > len(suffix) {
			return strings.TrimSuffix(key, suffix)
		}
	}
	return ""
}

func (Simplified) AllRows(table string) string { return camel(Plural(table)) }

func (s Simplified) RowByUniqueKey(table string, keys []string, primary bool) string {
	if primary {
		return camel(Singular(table))
	}
	return s.Default.RowByUniqueKey(table, keys, primary)
}

func (s Simplified) SingleRelation(foreignTable string, keys []string) string {
	if base := baseName(keys); base != "" {
		return camel(base)
	}
	return s.Default.SingleRelation(foreignTable, keys)
}

func (Simplified) SingleRelationBackward(table, foreignTable string, keys []string) string {
	base := baseName(keys)
	if base == "" || base == Singular(foreignTable) {
		return camel(Singular(table))
	}
	return camel(Singular(table), "by", base)
}

func (Simplified) ManyRelation(table, foreignTable string, keys []string) string {
	base := baseName(keys)
	if base == "" || base == Singular(foreignTable) {
		return camel(Plural(table))
	}
	return camel(Plural(table), "by", base)
}

func (Simplified) ManyToMany(rightTable, _ string, _, _ []string) string {
	return camel(Plural(rightTable))
}

func (s Simplified) UpdateField(table string, keys []string, primary bool) string {
	if primary {
		return camel("update", Singular(table))
	}
	return s.Default.UpdateField(table, keys, primary)
}

func (s Simplified) UpdateInputType(table string, keys []string, primary bool) string {
	if primary {
		return pascal("update", Singular(table), "input")
	}
	return s.Default.UpdateInputType(table, keys, primary)
}

func (s Simplified) DeleteField(table string, keys []string, primary bool) string {
	if primary {
		return camel("delete", Singular(table))
	}
	return s.Default.DeleteField(table, keys, primary)
}

func (s Simplified) DeleteInputType(table string, keys []string, primary bool) string {
	if primary {
		return pascal("delete", Singular(table), "input")
	}
	return s.Default.DeleteInputType(table, keys, primary)
}

func (Simplified) PatchField(string) string { return "patch" }
