package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"meetai/internal/avatar"
)

// Service handles business logic for agents with caching
type Service struct {
	repo  *Repository
	cache *redis.Client
}

// NewService creates a new agents service with Redis caching
func NewService(repo *Repository, redisAddr, redisPassword string, redisDB int) *Service {
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis connection failed: %v. Caching disabled.", err)
		rdb = nil
	} else {
		log.Println("Redis cache connected for agents service")
	}

	return &Service{
		repo:  repo,
		cache: rdb,
	}
}

// CreateAgent creates a new agent and invalidates relevant caches
func (s *Service) CreateAgent(ctx context.Context, userID string, req CreateAgentRequest) (*Agent, error) {
	agent, err := s.repo.Create(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	s.invalidateUserAgentsCache(ctx, userID)

	return withAvatarURL(agent), nil
}

// GetAgent retrieves an agent by ID with caching.
// Agents are scoped to their owner; another user's agent reads as not found.
func (s *Service) GetAgent(ctx context.Context, agentID, userID string) (*Agent, error) {
	if s.cache != nil {
		cacheKey := fmt.Sprintf("agent:%s", agentID)
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var agent Agent
			if err := json.Unmarshal([]byte(cached), &agent); err == nil {
				if agent.UserID != userID {
					return nil, ErrAgentNotFound
				}
				return withAvatarURL(&agent), nil
			}
		}
	}

	agent, err := s.repo.GetByID(ctx, agentID)
	if err != nil {
		return nil, err
	}

	// Store in cache (5 minute TTL)
	if s.cache != nil {
		cacheKey := fmt.Sprintf("agent:%s", agentID)
		data, _ := json.Marshal(agent)
		s.cache.Set(ctx, cacheKey, data, 5*time.Minute)
	}

	if agent.UserID != userID {
		return nil, ErrAgentNotFound
	}

	return withAvatarURL(agent), nil
}

// GetAgentByName retrieves an agent owned by a user, by name
func (s *Service) GetAgentByName(ctx context.Context, userID, name string) (*Agent, error) {
	agent, err := s.repo.GetByName(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	return withAvatarURL(agent), nil
}

// ListAgents retrieves agents owned by a user with pagination and caching
func (s *Service) ListAgents(ctx context.Context, userID string, page, pageSize int) (*PaginatedAgentsResponse, error) {
	if s.cache != nil {
		cacheKey := fmt.Sprintf("agents:user:%s:page:%d:size:%d", userID, page, pageSize)
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var response PaginatedAgentsResponse
			if err := json.Unmarshal([]byte(cached), &response); err == nil {
				return &response, nil
			}
		}
	}

	agents, totalCount, err := s.repo.GetByUserID(ctx, userID, page, pageSize)
	if err != nil {
		return nil, err
	}

	for i := range agents {
		agents[i].AvatarURL = avatar.URL(agents[i].AvatarSeed)
	}

	totalPages := int(totalCount) / pageSize
	if int(totalCount)%pageSize != 0 {
		totalPages++
	}

	response := &PaginatedAgentsResponse{
		Agents:     agents,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}

	// Store in cache (2 minute TTL for lists)
	if s.cache != nil {
		cacheKey := fmt.Sprintf("agents:user:%s:page:%d:size:%d", userID, page, pageSize)
		data, _ := json.Marshal(response)
		s.cache.Set(ctx, cacheKey, data, 2*time.Minute)
	}

	return response, nil
}

// UpdateAgent updates an agent and invalidates caches
func (s *Service) UpdateAgent(ctx context.Context, agentID, userID string, req UpdateAgentRequest) (*Agent, error) {
	agent, err := s.repo.Update(ctx, agentID, userID, req)
	if err != nil {
		return nil, err
	}

	s.invalidateAgentCache(ctx, agentID)
	s.invalidateUserAgentsCache(ctx, userID)

	return withAvatarURL(agent), nil
}

// DeleteAgent deletes an agent and invalidates caches
func (s *Service) DeleteAgent(ctx context.Context, agentID, userID string) error {
	err := s.repo.Delete(ctx, agentID, userID)
	if err != nil {
		return err
	}

	s.invalidateAgentCache(ctx, agentID)
	s.invalidateUserAgentsCache(ctx, userID)

	return nil
}

func withAvatarURL(agent *Agent) *Agent {
	agent.AvatarURL = avatar.URL(agent.AvatarSeed)
	return agent
}

// Cache invalidation helpers
func (s *Service) invalidateAgentCache(ctx context.Context, agentID string) {
	if s.cache != nil {
		cacheKey := fmt.Sprintf("agent:%s", agentID)
		s.cache.Del(ctx, cacheKey)
	}
}

func (s *Service) invalidateUserAgentsCache(ctx context.Context, userID string) {
	if s.cache != nil {
		pattern := fmt.Sprintf("agents:user:%s:*", userID)
		s.deleteByPattern(ctx, pattern)
	}
}

func (s *Service) deleteByPattern(ctx context.Context, pattern string) {
	iter := s.cache.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		s.cache.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("Error scanning cache keys: %v", err)
	}
}
