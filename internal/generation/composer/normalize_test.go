package composer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"titlegen-admin/internal/shared/model"
)

func turn(role model.Role, content string) model.ConversationTurn {
	return model.ConversationTurn{Role: role, Content: content}
}

// assertAlternating 校验序列为空或首条 user 且严格交替
func assertAlternating(t *testing.T, turns []model.ConversationTurn) {
	t.Helper()
	if len(turns) == 0 {
		return
	}
	assert.Equal(t, model.RoleUser, turns[0].Role, "first turn must be user")
	for i := 1; i < len(turns); i++ {
		assert.NotEqual(t, turns[i-1].Role, turns[i].Role,
			"adjacent turns at %d/%d share role %s", i-1, i, turns[i].Role)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Empty(t, Normalize(nil))
	assert.Empty(t, Normalize([]model.ConversationTurn{}))

	// 全部为空内容或非法角色
	out := Normalize([]model.ConversationTurn{
		turn(model.RoleUser, ""),
		turn(model.RoleUser, "   "),
		turn("system", "should be dropped"),
	})
	assert.Empty(t, out)
}

func TestNormalizeMergesAdjacentSameRole(t *testing.T) {
	out := Normalize([]model.ConversationTurn{
		turn(model.RoleUser, "hi"),
		turn(model.RoleUser, "there"),
		turn(model.RoleUser, "hello"),
		turn(model.RoleAssistant, "yes?"),
	})

	assert.Len(t, out, 2)
	assert.Equal(t, "hi\n\nthere\n\nhello", out[0].Content)
	assert.Equal(t, model.RoleUser, out[0].Role)
	assert.Equal(t, "yes?", out[1].Content)
	assertAlternating(t, out)
}

func TestNormalizeDropsLeadingAssistant(t *testing.T) {
	out := Normalize([]model.ConversationTurn{
		turn(model.RoleAssistant, "welcome back"),
		turn(model.RoleUser, "write a title"),
		turn(model.RoleAssistant, "sure"),
	})

	assert.Len(t, out, 2)
	assert.Equal(t, "write a title", out[0].Content)
	assertAlternating(t, out)

	// 只有 assistant 消息时输出为空
	out = Normalize([]model.ConversationTurn{
		turn(model.RoleAssistant, "a"),
		turn(model.RoleAssistant, "b"),
	})
	assert.Empty(t, out)
}

func TestNormalizeDropsEmptyAndInvalidBeforeMerge(t *testing.T) {
	// 中间的空消息被丢弃后，两侧同角色消息应当合并
	out := Normalize([]model.ConversationTurn{
		turn(model.RoleUser, "first"),
		turn(model.RoleAssistant, ""),
		turn(model.RoleUser, "second"),
		turn(model.RoleAssistant, "reply"),
	})

	assert.Len(t, out, 2)
	assert.Equal(t, "first\n\nsecond", out[0].Content)
	assertAlternating(t, out)
}

func TestNormalizeAlternationProperty(t *testing.T) {
	// 各种打乱的输入，输出都必须满足交替性
	inputs := [][]model.ConversationTurn{
		{
			turn(model.RoleAssistant, "a1"),
			turn(model.RoleAssistant, "a2"),
			turn(model.RoleUser, "u1"),
			turn(model.RoleUser, "u2"),
			turn(model.RoleAssistant, "a3"),
			turn("tool", "x"),
			turn(model.RoleAssistant, "a4"),
			turn(model.RoleUser, "u3"),
		},
		{
			turn(model.RoleUser, "u1"),
			turn(model.RoleAssistant, "a1"),
			turn(model.RoleUser, "u2"),
		},
		{
			turn(model.RoleAssistant, "a1"),
			turn(model.RoleUser, ""),
			turn(model.RoleAssistant, "a2"),
		},
	}

	for _, in := range inputs {
		assertAlternating(t, Normalize(in))
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	in := []model.ConversationTurn{
		turn(model.RoleAssistant, "greeting"),
		turn(model.RoleUser, "hi"),
		turn(model.RoleUser, "there"),
		turn(model.RoleAssistant, "hello"),
		turn(model.RoleAssistant, "again"),
		turn(model.RoleUser, "write"),
	}

	once := Normalize(in)
	twice := Normalize(once)
	assert.Equal(t, once, twice)
}
