package inflect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultNames(t *testing.T) {
	d := Default{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"table type", d.TableType("users"), "User"},
		{"compound table type", d.TableType("post_tags"), "PostTag"},
		{"connection", d.ConnectionType("users"), "UsersConnection"},
		{"edge", d.EdgeType("users"), "UsersEdge"},
		{"order by", d.OrderByType("users"), "UsersOrderBy"},
		{"condition", d.ConditionType("users"), "UserCondition"},
		{"all rows", d.AllRows("users"), "allUsers"},
		{"row by pk", d.RowByUniqueKey("users", []string{"id"}, true), "userById"},
		{"row by unique", d.RowByUniqueKey("users", []string{"email"}, false), "userByEmail"},
		{"forward", d.SingleRelation("users", []string{"author_id"}), "userByAuthorId"},
		{"backward", d.ManyRelation("posts", "users", []string{"author_id"}), "postsByAuthorId"},
		{"unique backward", d.SingleRelationBackward("profiles", "users", []string{"user_id"}), "profileByUserId"},
		{"many to many", d.ManyToMany("tags", "post_tags", []string{"post_id"}, []string{"tag_id"}), "tagsByPostTagPostIdAndTagId"},
		{"column", d.Column("author_id"), "authorId"},
		{"order value", d.OrderByValue("author_id", true), "AUTHOR_ID_DESC"},
		{"enum type", d.EnumType("user_status"), "UserStatus"},
		{"enum value", d.EnumValue("in-progress"), "IN_PROGRESS"},
		{"create", d.CreateField("users"), "createUser"},
		{"create input", d.CreateInputType("users"), "CreateUserInput"},
		{"update", d.UpdateField("users", []string{"id"}, true), "updateUserById"},
		{"update input", d.UpdateInputType("users", []string{"id"}, true), "UpdateUserByIdInput"},
		{"update payload", d.UpdatePayloadType("users"), "UpdateUserPayload"},
		{"delete", d.DeleteField("users", []string{"id"}, true), "deleteUserById"},
		{"patch field", d.PatchField("users"), "userPatch"},
		{"patch type", d.PatchType("users"), "UserPatch"},
		{"aggregates", d.AggregatesType("users", "sum"), "UserSumAggregates"},
		{"function", d.Function("big_orders"), "bigOrders"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestSimplifiedNames(t *testing.T) {
	s := Simplified{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"all rows", s.AllRows("users"), "users"},
		{"row by pk", s.RowByUniqueKey("users", []string{"id"}, true), "user"},
		{"row by unique", s.RowByUniqueKey("users", []string{"email"}, false), "userByEmail"},
		{"forward", s.SingleRelation("users", []string{"author_id"}), "author"},
		{"forward without id suffix", s.SingleRelation("users", []string{"owner"}), "userByOwner"},
		{"backward matching parent", s.ManyRelation("posts", "users", []string{"user_id"}), "posts"},
		{"backward by role", s.ManyRelation("posts", "users", []string{"author_id"}), "postsByAuthor"},
		{"unique backward", s.SingleRelationBackward("profiles", "users", []string{"user_id"}), "profile"},
		{"many to many", s.ManyToMany("tags", "post_tags", []string{"post_id"}, []string{"tag_id"}), "tags"},
		{"update", s.UpdateField("users", []string{"id"}, true), "updateUser"},
		{"update input", s.UpdateInputType("users", []string{"id"}, true), "UpdateUserInput"},
		{"update by unique", s.UpdateField("users", []string{"email"}, false), "updateUserByEmail"},
		{"delete", s.DeleteField("users", []string{"id"}, true), "deleteUser"},
		{"patch field", s.PatchField("users"), "patch"},
		{"type unchanged", s.TableType("users"), "User"},
		{"connection unchanged", s.ConnectionType("users"), "UsersConnection"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestName(t *testing.T) {
	assert.Equal(t, "valid_name", Name("valid_name"))
	assert.Equal(t, "a_b", Name("a-b"))
	assert.Equal(t, "_1st", Name("1st"))
	assert.Equal(t, "_", Name(""))
}
