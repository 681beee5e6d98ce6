package playback

import "time"

// Player is the playback state (isPlaying, currentFrameIndex, speed) over a
// fixed frame sequence. Every transition returns a new Player and leaves the
// receiver and the journal untouched; the caller owns the timer.
type Player struct {
	frames   []Frame
	delays   []time.Duration
	maxDelay time.Duration
	speed    float64
	index    int
	playing  bool
}

// NewPlayer creates a paused player positioned on the first frame.
func NewPlayer(frames []Frame, speed float64, maxDelay time.Duration) (Player, error) {
	delays, err := CalculateFrameDelays(frames, speed, maxDelay)
	if err != nil {
		return Player{}, err
	}
	return Player{
		frames:   frames,
		delays:   delays,
		maxDelay: maxDelay,
		speed:    speed,
	}, nil
}

// Play starts playback. Playing from the last frame starts over.
func (p Player) Play() Player {
	if len(p.frames) == 0 {
		return p
	}
	if p.AtEnd() {
		p.index = 0
	}
	p.playing = true
	return p
}

// Pause stops playback on the current frame.
func (p Player) Pause() Player {
	p.playing = false
	return p
}

// Toggle switches between Play and Pause.
func (p Player) Toggle() Player {
	if p.playing {
		return p.Pause()
	}
	return p.Play()
}

// Seek jumps to frame i, clamped to the valid range. Playback state is kept.
func (p Player) Seek(i int) Player {
	if len(p.frames) == 0 {
		return p
	}
	p.index = max(0, min(i, len(p.frames)-1))
	return p
}

// SetSpeed changes the multiplier and recomputes the delays.
func (p Player) SetSpeed(speed float64) (Player, error) {
	delays, err := CalculateFrameDelays(p.frames, speed, p.maxDelay)
	if err != nil {
		return p, err
	}
	p.speed = speed
	p.delays = delays
	return p, nil
}

// Restart returns to the first frame and plays.
func (p Player) Restart() Player {
	p.index = 0
	return p.Play()
}

// Advance moves to the next frame. Reaching the last frame stops playback.
func (p Player) Advance() Player {
	if p.index < len(p.frames)-1 {
		p.index++
	}
	if p.AtEnd() {
		p.playing = false
	}
	return p
}

// NextDelay returns how long to wait before advancing.
// ok is false when paused or on the last frame.
func (p Player) NextDelay() (time.Duration, bool) {
	if !p.playing || p.AtEnd() {
		return 0, false
	}
	return p.delays[p.index], true
}

// Frame returns the current frame.
func (p Player) Frame() Frame {
	if len(p.frames) == 0 {
		return Frame{}
	}
	return p.frames[p.index]
}

func (p Player) Index() int { return p.index }
func (p Player) Len() int { return len(p.frames) }
func (p Player) Playing() bool { return p.playing }
func (p Player) Speed() float64 { return p.speed }
func (p Player) AtEnd() bool { return p.index >= len(p.frames)-1 }
func (p Player) Frames() []Frame { return p.frames }
