package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

const (
	// MinutesPerDay граница для времени суток в минутах
	MinutesPerDay = 24 * 60

	// DefaultDurationMinutes длительность услуги, когда она не задана
	DefaultDurationMinutes = 60

	// DefaultSlotStepMinutes шаг генерации слотов
	DefaultSlotStepMinutes = 60

	// DefaultClosedWeekday выходной день салона (понедельник)
	DefaultClosedWeekday = 1

	// DefaultSlotCacheTTL время жизни кэша слотов в секундах
	DefaultSlotCacheTTL = 60

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 1000

	// RateLimitRequests количество запросов в окне
	RateLimitRequests = 20

	// RateLimitWindow окно ограничения частоты запросов в секундах
	RateLimitWindow = 60
)

// BlockingStatuses are the reservation statuses that occupy a slot for
// conflict checks at write time.
var BlockingStatuses = []string{StatusPending, StatusConfirmed}
