package bluray

import (
	"errors"
	"fmt"
)

var (
	ErrMount           = errors.New("bluray: cannot mount disc")
	ErrNoPlayableTitle = errors.New("bluray: no playable title")
	ErrDecode          = errors.New("bluray: decode error")
	ErrEncrypted       = fmt.Errorf("%w: encrypted content", ErrDecode)
	ErrExit            = errors.New("bluray: playback exited")
	ErrSeekOutOfRange  = errors.New("bluray: seek out of range")
	ErrNotOpen         = errors.New("bluray: stream not open")
	ErrAborted         = errors.New("bluray: aborted")
)
