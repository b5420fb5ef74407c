// Package pipeline 线索阶段：new → negotiation → won。
package pipeline

import (
	"errors"
	"fmt"
)

type Stage string

const (
	StageNew         Stage = "new"
	StageNegotiation Stage = "negotiation"
	StageWon         Stage = "won"
)

type Direction string

const (
	Next Direction = "next"
	Prev Direction = "prev"
)

var (
	ErrUnknownStage     = errors.New("unknown pipeline stage")
	ErrUnknownDirection = errors.New("unknown move direction")
)

// Stages 按顺序排列的全部阶段
var Stages = []Stage{StageNew, StageNegotiation, StageWon}

type transition struct {
	next Stage
	prev Stage
}

// 空字符串表示该方向没有后继，移动为 no-op
var transitions = map[Stage]transition{
	StageNew:         {next: StageNegotiation},
	StageNegotiation: {next: StageWon, prev: StageNew},
	StageWon:         {prev: StageNegotiation},
}

// First 新线索的初始阶段
func First() Stage { return Stages[0] }

// Parse 校验状态字符串
func Parse(s string) (Stage, error) {
	st := Stage(s)
	if _, ok := transitions[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStage, s)
	}
	return st, nil
}

func ParseDirection(s string) (Direction, error) {
	d := Direction(s)
	if d != Next && d != Prev {
		return "", fmt.Errorf("%w: %q", ErrUnknownDirection, s)
	}
	return d, nil
}

// Move 计算移动后的阶段。已在首/末阶段时返回原阶段且 changed 为 false。
func Move(status string, dir Direction) (to Stage, changed bool, err error) {
	from, err := Parse(status)
	if err != nil {
		return "", false, err
	}

	t := transitions[from]
	switch dir {
	case Next:
		to = t.next
	case Prev:
		to = t.prev
	default:
		return "", false, fmt.Errorf("%w: %q", ErrUnknownDirection, dir)
	}

	if to == "" {
		return from, false, nil
	}
	return to, true, nil
}

// Index 阶段在看板中的位置，未知阶段返回 -1
func Index(s Stage) int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}
