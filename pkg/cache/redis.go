package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/lesson-scheduler-api/pkg/config"
)

// NewRedis returns a configured Redis client, or nil when Redis is disabled.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", client.Options().Addr, err)
	}

	return client, nil
}

// ScheduleKey is the cache key of a student's persisted course schedule.
func ScheduleKey(studentID, courseID string) string {
	return fmt.Sprintf("schedule:student:%s:course:%s", studentID, courseID)
}

// CourseSchedulePattern matches every cached schedule of a course.
func CourseSchedulePattern(courseID string) string {
	return fmt.Sprintf("schedule:student:*:course:%s", courseID)
}

// LockKey names the generation lock of a student-course pair.
func LockKey(studentID, courseID string) string {
	return fmt.Sprintf("schedule:%s:%s", studentID, courseID)
}
