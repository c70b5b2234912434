package domain

import "errors"

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrPlayerNotFound = errors.New("player not found")
	// start_game до того, как вопросы готовы
	ErrNotReady = errors.New("room not ready: no questions prepared")
	// команда не в своей фазе, голос за свой блеф, неизвестный вариант
	ErrInvalidCommand = errors.New("invalid command")
	ErrNotHost        = errors.New("only the host can do that")
)
