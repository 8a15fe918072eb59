package service

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockTelegramSender struct {
	mock.Mock
}

func (m *mockTelegramSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func (m *mockTelegramSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	args := m.Called(c)
	return args.Get(0).(*tgbotapi.APIResponse), args.Error(1)
}

func (m *mockTelegramSender) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	args := m.Called(config)
	return args.Get(0).(tgbotapi.UpdatesChannel)
}

func (m *mockTelegramSender) GetSelf() tgbotapi.User {
	args := m.Called()
	return args.Get(0).(tgbotapi.User)
}

func (m *mockTelegramSender) StopReceivingUpdates() {
	m.Called()
}

func TestTelegramService(t *testing.T) {
	mockSender := new(mockTelegramSender)
	svc := NewTelegramService(mockSender)

	t.Run("SendMessage", func(t *testing.T) {
		mockSender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			msg, ok := c.(tgbotapi.MessageConfig)
			return ok && msg.Text == "olá" && msg.ChatID == 123
		})).Return(tgbotapi.Message{MessageID: 1}, nil).Once()

		msg, err := svc.SendMessage(123, "olá")
		assert.NoError(t, err)
		assert.Equal(t, 1, msg.MessageID)
		mockSender.AssertExpectations(t)
	})

	t.Run("SendWithInlineKeyboard", func(t *testing.T) {
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Começar", "start")))
		mockSender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			msg, ok := c.(tgbotapi.MessageConfig)
			return ok && msg.ReplyMarkup != nil
		})).Return(tgbotapi.Message{}, nil).Once()

		_, err := svc.SendWithInlineKeyboard(123, "Bem-vindo", keyboard)
		assert.NoError(t, err)
		mockSender.AssertExpectations(t)
	})

	t.Run("EditMessage", func(t *testing.T) {
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Voltar", "back")))
		mockSender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			msg, ok := c.(tgbotapi.EditMessageTextConfig)
			return ok && msg.MessageID == 7 && msg.ReplyMarkup != nil
		})).Return(tgbotapi.Message{}, nil).Once()
		mockSender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			msg, ok := c.(tgbotapi.EditMessageTextConfig)
			return ok && msg.MessageID == 8 && msg.ReplyMarkup == nil
		})).Return(tgbotapi.Message{}, nil).Once()

		_, err := svc.EditMessage(123, 7, "texto", &keyboard)
		assert.NoError(t, err)
		_, err = svc.EditMessage(123, 8, "texto", nil)
		assert.NoError(t, err)
		mockSender.AssertExpectations(t)
	})

	t.Run("DeleteMessage", func(t *testing.T) {
		mockSender.On("Request", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			msg, ok := c.(tgbotapi.DeleteMessageConfig)
			return ok && msg.MessageID == 9
		})).Return(&tgbotapi.APIResponse{Ok: true}, nil).Once()

		assert.NoError(t, svc.DeleteMessage(123, 9))
		mockSender.AssertExpectations(t)
	})

	t.Run("SendDocument", func(t *testing.T) {
		mockSender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			doc, ok := c.(tgbotapi.DocumentConfig)
			return ok && doc.ChatID == 123
		})).Return(tgbotapi.Message{}, nil).Once()

		_, err := svc.SendDocument(123, "agendamentos.xlsx", []byte("xlsx"))
		assert.NoError(t, err)
		_, err = svc.SendDocument(123, "vazio.xlsx", nil)
		assert.Error(t, err)
		mockSender.AssertExpectations(t)
	})

	t.Run("AnswerCallback", func(t *testing.T) {
		mockSender.On("Request", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			_, ok := c.(tgbotapi.CallbackConfig)
			return ok
		})).Return(&tgbotapi.APIResponse{Ok: true}, errors.New("timeout")).Once()

		err := svc.AnswerCallback("cb123", "ok")
		assert.Error(t, err)
		mockSender.AssertExpectations(t)
	})

	t.Run("Passthrough", func(t *testing.T) {
		mockSender.On("GetSelf").Return(tgbotapi.User{UserName: "agenda_bot"}).Once()
		mockSender.On("StopReceivingUpdates").Return().Once()

		assert.Equal(t, "agenda_bot", svc.GetSelf().UserName)
		svc.StopReceivingUpdates()
		mockSender.AssertExpectations(t)
	})
}
