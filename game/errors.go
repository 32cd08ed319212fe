package game

import "errors"

var (
	ErrAlreadyJoined = errors.New("already-joined")
	ErrRoomFull      = errors.New("room-full")
)

var ErrSendBufferFull = errors.New("send-buffer-full")
