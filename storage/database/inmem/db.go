package inmemdb

import (
	"sync"

	"github.com/trezcool/mergington/core/activity"
)

type (
	DB struct {
		activity *activityTable
	}

	activityTable struct {
		table map[string]*activity.Activity
		order []string // names, in seeding order
		mutex sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		activity: &activityTable{table: make(map[string]*activity.Activity)},
	}
}
