package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	cacheKeyBookID   = "library:book:id:"
	cacheKeyBookIsbn = "library:book:isbn:"
)

// redisBookCache is a read-through cache in front of a book storage.
// Only single book lookups are cached. Redis failures are logged and
// the call falls back to the wrapped storage.
type redisBookCache struct {
	logger *zap.Logger
	client *redis.Client
	next   BookStorage
	ttl    time.Duration
}

// NewRedisBookCache wraps a book storage with a redis-based cache.
func NewRedisBookCache(logger *zap.Logger, client *redis.Client, ttl time.Duration, next BookStorage) BookStorage {
	return &redisBookCache{
		logger: logger,
		client: client,
		next:   next,
		ttl:    ttl,
	}
}

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(config *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Redis.Host, config.Redis.Port),
		DialTimeout:  config.Redis.DialTimeout,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
		PoolSize:     config.Redis.PoolSize,
		PoolTimeout:  config.Redis.PoolTimeout,
		Password:     config.Redis.Password,
		Username:     config.Redis.Username,
		DB:           config.Redis.DatabaseIndex,
	})

	// test connection.
	if pong, err := client.Ping(context.Background()).Result(); pong != "PONG" || err != nil {
		return client, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}

func bookIDKey(id int64) string {
	return cacheKeyBookID + strconv.FormatInt(id, 10)
}

func bookIsbnKey(isbn string) string {
	return cacheKeyBookIsbn + isbn
}

// ExistsByIsbn always asks the storage since it guards the isbn uniqueness.
func (c *redisBookCache) ExistsByIsbn(ctx context.Context, isbn string) (bool, error) {
	return c.next.ExistsByIsbn(ctx, isbn)
}

func (c *redisBookCache) Save(ctx context.Context, book Book) (Book, error) {
	return c.next.Save(ctx, book)
}

func (c *redisBookCache) Update(ctx context.Context, book Book) (Book, error) {
	updated, err := c.next.Update(ctx, book)
	if err != nil {
		return updated, err
	}
	c.evict(ctx, updated)
	return updated, nil
}

func (c *redisBookCache) FindAll(ctx context.Context) ([]Book, error) {
	return c.next.FindAll(ctx)
}

func (c *redisBookCache) FindByID(ctx context.Context, id int64) (Book, error) {
	if book, ok := c.get(ctx, bookIDKey(id)); ok {
		return book, nil
	}
	book, err := c.next.FindByID(ctx, id)
	if err != nil {
		return book, err
	}
	c.set(ctx, book)
	return book, nil
}

func (c *redisBookCache) FindByIsbn(ctx context.Context, isbn string) (Book, error) {
	if book, ok := c.get(ctx, bookIsbnKey(isbn)); ok {
		return book, nil
	}
	book, err := c.next.FindByIsbn(ctx, isbn)
	if err != nil {
		return book, err
	}
	c.set(ctx, book)
	return book, nil
}

// Delete removes the book from the storage first then evicts both cache
// entries. The stored book is read beforehand to know its isbn key.
func (c *redisBookCache) Delete(ctx context.Context, id int64) error {
	book, err := c.next.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err = c.next.Delete(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, book)
	return nil
}

func (c *redisBookCache) FindByExample(ctx context.Context, criteria BookCriteria, page PageRequest) ([]Book, int64, error) {
	return c.next.FindByExample(ctx, criteria, page)
}

func (c *redisBookCache) get(ctx context.Context, key string) (Book, bool) {
	var book Book
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return book, false
	}
	if err != nil {
		c.logger.Warn("cache: failed to read book", zap.String("cache.key", key), zap.Error(err))
		return book, false
	}
	if err = storeCodec.Unmarshal(data, &book); err != nil {
		c.logger.Warn("cache: failed to decode book", zap.String("cache.key", key), zap.Error(err))
		return book, false
	}
	return book, true
}

func (c *redisBookCache) set(ctx context.Context, book Book) {
	data, err := storeCodec.Marshal(book)
	if err != nil {
		c.logger.Warn("cache: failed to encode book", zap.Int64("book.id", book.ID), zap.Error(err))
		return
	}
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, bookIDKey(book.ID), data, c.ttl)
		pipe.Set(ctx, bookIsbnKey(book.Isbn), data, c.ttl)
		return nil
	})
	if err != nil {
		c.logger.Warn("cache: failed to store book", zap.Int64("book.id", book.ID), zap.Error(err))
	}
}

func (c *redisBookCache) evict(ctx context.Context, book Book) {
	keys := []string{bookIDKey(book.ID)}
	if book.Isbn != "" {
		keys = append(keys, bookIsbnKey(book.Isbn))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("cache: failed to evict book", zap.Int64("book.id", book.ID), zap.Error(err))
	}
}
