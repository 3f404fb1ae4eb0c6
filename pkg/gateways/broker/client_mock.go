package broker

import (
	"github.com/stretchr/testify/mock"
)

type ClientMock struct {
	mock.Mock
}

func (c *ClientMock) Connect() error {
	args := c.Called()
	return args.Error(0)
}

func (c *ClientMock) Subscribe(topics []string, handler MessageHandler) error {
	args := c.Called(topics)
	return args.Error(0)
}

func (c *ClientMock) Publish(topic, payload string) error {
	args := c.Called(topic, payload)
	return args.Error(0)
}

func (c *ClientMock) Unsubscribe(topics []string) error {
	args := c.Called(topics)
	return args.Error(0)
}

func (c *ClientMock) Disconnect() {
	c.Called()
}
