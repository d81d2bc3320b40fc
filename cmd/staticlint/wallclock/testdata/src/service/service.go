package service

import "time"

type clock interface {
	Now() time.Time
}

func expired(c clock, at time.Time) bool {
	return !at.After(c.Now())
}

func expiredWall(at time.Time) bool {
	return !at.After(time.Now()) // want `time.Now is forbidden here`
}

var now = time.Now // want `time.Now is forbidden here`
