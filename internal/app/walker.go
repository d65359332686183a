package app

import (
	"fmt"
	"math"
	"time"

	"github.com/annel0/worldstream/internal/config"
	"github.com/annel0/worldstream/internal/vec"
)

// Path задаёт положение опорной точки через elapsed после старта из origin
type Path func(origin vec.Vec2Float, elapsed time.Duration) vec.Vec2Float

// LinePath движется вдоль оси X со скоростью speed (ед/с)
func LinePath(speed float64) Path {
	return func(origin vec.Vec2Float, elapsed time.Duration) vec.Vec2Float {
		return origin.Add(vec.Vec2Float{X: speed * elapsed.Seconds()})
	}
}

// CirclePath обходит окружность радиуса radius вокруг origin с линейной скоростью speed
func CirclePath(speed, radius float64) Path {
	return func(origin vec.Vec2Float, elapsed time.Duration) vec.Vec2Float {
		if radius <= 0 {
			return origin
		}
		angle := speed / radius * elapsed.Seconds()
		return origin.Add(vec.Vec2Float{X: radius * math.Cos(angle), Y: radius * math.Sin(angle)})
	}
}

// TeleportPath раз в period прыгает на jump по диагонали
func TeleportPath(jump float64, period time.Duration) Path {
	return func(origin vec.Vec2Float, elapsed time.Duration) vec.Vec2Float {
		if period <= 0 {
			return origin
		}
		k := float64(elapsed / period)
		return origin.Add(vec.Vec2Float{X: k * jump, Y: k * jump})
	}
}

// NewPath строит путь по секции simulation конфигурации
func NewPath(cfg config.SimulationConfig) (Path, error) {
	switch cfg.Path {
	case "", "line":
		return LinePath(cfg.Speed), nil
	case "circle":
		return CirclePath(cfg.Speed, cfg.Radius), nil
	case "teleport":
		return TeleportPath(cfg.Jump, time.Second), nil
	default:
		return nil, fmt.Errorf("неизвестный путь %q", cfg.Path)
	}
}
