package util

import (
	"context"
	"testing"
	"time"

	"carteras/internal/app/catalog/entity"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// RedisClientTestSuite тестовый suite для Redis кеша категорий
type RedisClientTestSuite struct {
	suite.Suite
	miniRedis *miniredis.Miniredis
	client    *RedisClient
}

func TestRedisClientSuite(t *testing.T) {
	suite.Run(t, new(RedisClientTestSuite))
}

func (s *RedisClientTestSuite) SetupSuite() {
	var err error
	s.miniRedis, err = miniredis.Run()
	require.NoError(s.T(), err)

	s.client, err = NewRedisClient(s.miniRedis.Addr(), "", 0)
	require.NoError(s.T(), err)
}

func (s *RedisClientTestSuite) SetupTest() {
	s.miniRedis.FlushAll()
}

func (s *RedisClientTestSuite) TearDownSuite() {
	s.client.Close()
	s.miniRedis.Close()
}

func (s *RedisClientTestSuite) TestSetAndGetCategories() {
	ctx := context.Background()

	categories := []entity.Category{
		{ID: uuid.New(), Name: "Bags", CreatedAt: time.Now().UTC()},
		{ID: uuid.New(), Name: "Wallets", CreatedAt: time.Now().UTC()},
	}

	err := s.client.SetCategories(ctx, categories, time.Hour)
	s.NoError(err)

	cached, err := s.client.GetCategories(ctx)
	s.NoError(err)
	s.Len(cached, 2)
	s.Equal(categories[0].ID, cached[0].ID)
	s.Equal("Bags", cached[0].Name)
}

func (s *RedisClientTestSuite) TestGetCategories_Miss() {
	ctx := context.Background()

	_, err := s.client.GetCategories(ctx)

	s.ErrorIs(err, ErrCacheMiss)
}

func (s *RedisClientTestSuite) TestDeleteCategories() {
	ctx := context.Background()

	categories := []entity.Category{{ID: uuid.New(), Name: "Bags"}}
	s.NoError(s.client.SetCategories(ctx, categories, time.Hour))

	s.NoError(s.client.DeleteCategories(ctx))

	_, err := s.client.GetCategories(ctx)
	s.ErrorIs(err, ErrCacheMiss)
}

// Повторная инвалидация пустого кеша не ошибка
func (s *RedisClientTestSuite) TestDeleteCategories_Idempotent() {
	ctx := context.Background()

	s.NoError(s.client.DeleteCategories(ctx))
	s.NoError(s.client.DeleteCategories(ctx))
}

func (s *RedisClientTestSuite) TestSetCategories_TTL() {
	ctx := context.Background()

	categories := []entity.Category{{ID: uuid.New(), Name: "Bags"}}
	s.NoError(s.client.SetCategories(ctx, categories, time.Minute))

	// По истечении TTL ключ исчезает
	s.miniRedis.FastForward(2 * time.Minute)

	_, err := s.client.GetCategories(ctx)
	s.ErrorIs(err, ErrCacheMiss)
}
