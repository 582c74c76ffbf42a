package service

import (
	"context"

	"github.com/joeyave/event-buddy/entity"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type UserService struct {
	userRepository UserRepository
}

func NewUserService(userRepository UserRepository) *UserService {
	return &UserService{
		userRepository: userRepository,
	}
}

func (s *UserService) FindOneByID(ctx context.Context, ID bson.ObjectID) (*entity.User, error) {
	return s.userRepository.FindOneByID(ctx, ID)
}

func (s *UserService) FindOneByEmail(ctx context.Context, email string) (*entity.User, error) {
	return s.userRepository.FindOneByEmail(ctx, email)
}
