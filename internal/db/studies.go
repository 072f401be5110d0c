package db

import (
	"context"
	"time"
)

type Direction string

const (
	DirectionMinimize Direction = "minimize"
	DirectionMaximize Direction = "maximize"
)

type Study struct {
	Id        int64
	Name      string
	Direction Direction
	CreatedTs time.Time
}

type StudyService interface {
	CreateStudy(ctx context.Context, study *Study) (*Study, error)
	GetStudyByName(ctx context.Context, name string) (*Study, error)
	ListStudies(ctx context.Context) ([]*Study, error)
}
