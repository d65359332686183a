package logging

import (
	"fmt"
	"os"
	"sync"
)

// Компоненты стримера, у каждого свой логгер и свой файл
const (
	ComponentWorld  = "world"
	ComponentServer = "server"
	ComponentRunner = "runner"
)

// LoggerManager хранит логгеры компонентов и общие для них уровни.
// Уровни, заданные через ApplyLevels, получают и логгеры, созданные позже.
type LoggerManager struct {
	mu           sync.RWMutex
	loggers      map[string]*Logger
	levelsSet    bool
	consoleLevel LogLevel
	fileLevel    LogLevel
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

func newLoggerManager() *LoggerManager {
	return &LoggerManager{loggers: make(map[string]*Logger)}
}

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = newLoggerManager()
	})
	return globalManager
}

// GetLogger возвращает логгер компонента, создавая его при первом обращении
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.RLock()
	logger, exists := lm.loggers[component]
	lm.mu.RUnlock()
	if exists {
		return logger, nil
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	if logger, exists := lm.loggers[component]; exists {
		return logger, nil
	}

	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("логгер компонента %s: %w", component, err)
	}
	lm.adopt(component, logger)
	return logger, nil
}

// MustGetLogger возвращает логгер или консольный fallback, если файл не открылся
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err == nil {
		return logger
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	if existing, ok := lm.loggers[component]; ok {
		return existing
	}
	fallback := newConsoleLogger(component, os.Stdout)
	lm.adopt(component, fallback)
	fallback.Warn("файловый лог недоступен: %v", err)
	return fallback
}

// adopt регистрирует логгер и применяет к нему общие уровни. Вызывается под lm.mu.
func (lm *LoggerManager) adopt(component string, logger *Logger) {
	if lm.levelsSet {
		logger.SetLevels(lm.consoleLevel, lm.fileLevel)
	}
	lm.loggers[component] = logger
}

// ApplyLevels задаёт уровни всем логгерам компонентов, текущим и будущим
func (lm *LoggerManager) ApplyLevels(consoleLevel, fileLevel LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.levelsSet = true
	lm.consoleLevel = consoleLevel
	lm.fileLevel = fileLevel
	for _, logger := range lm.loggers {
		logger.SetLevels(consoleLevel, fileLevel)
	}
}

// ApplyLevelNames разбирает уровни из конфигурации и применяет их
func (lm *LoggerManager) ApplyLevelNames(console, file string) error {
	consoleLevel, err := ParseLevel(console)
	if err != nil {
		return fmt.Errorf("console_level: %w", err)
	}
	fileLevel, err := ParseLevel(file)
	if err != nil {
		return fmt.Errorf("file_level: %w", err)
	}
	lm.ApplyLevels(consoleLevel, fileLevel)
	return nil
}

// CloseAll закрывает файлы всех логгеров и забывает их
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var lastErr error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			lastErr = fmt.Errorf("закрытие логгера %s: %w", component, err)
		}
	}

	lm.loggers = make(map[string]*Logger)
	return lastErr
}

// GetComponentLogger возвращает логгер компонента из глобального менеджера
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetWorldLogger() *Logger {
	return GetComponentLogger(ComponentWorld)
}

func GetServerLogger() *Logger {
	return GetComponentLogger(ComponentServer)
}

func GetRunnerLogger() *Logger {
	return GetComponentLogger(ComponentRunner)
}
