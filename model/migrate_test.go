package model_test

import (
	"testing"
	"time"

	"github.com/kasuganosora/rpgscript/model"
	"github.com/kasuganosora/rpgscript/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestAutoMigrate_InsertAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)

	// SaveGame
	sg := &model.SaveGame{Slot: "auto", Version: 1, Money: 30, Data: datatypes.JSON(`{"version":1}`)}
	require.NoError(t, db.Create(sg).Error)
	assert.Greater(t, sg.ID, int64(0))

	var found model.SaveGame
	require.NoError(t, db.Where("slot = ?", "auto").First(&found).Error)
	assert.Equal(t, int64(30), found.Money)
	assert.JSONEq(t, `{"version":1}`, string(found.Data))

	// Slots are unique.
	dup := &model.SaveGame{Slot: "auto", Version: 1, Data: datatypes.JSON(`{}`)}
	assert.Error(t, db.Create(dup).Error)

	// ScriptFault
	f := &model.ScriptFault{
		Script: "keeper", Section: "start", Index: 2,
		Reason:    "remove_item: player does not have the item",
		CreatedAt: time.Now(),
	}
	require.NoError(t, db.Create(f).Error)

	var n int64
	db.Model(&model.ScriptFault{}).Where("script = ?", "keeper").Count(&n)
	assert.Equal(t, int64(1), n)
}
