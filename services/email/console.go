package emailsvc

import (
	"fmt"
	"log"
	"strings"

	"github.com/smartsubmit/smartsubmit/core"
)

// consoleService prints emails to the console; used in DEV and tests.
type consoleService struct {
	appName string
	from    string
	std     *log.Logger
}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService(conf *core.Config, std *log.Logger) core.EmailService {
	return &consoleService{appName: conf.AppName, from: conf.DefaultFromEmail, std: std}
}

func (svc *consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if !msg.HasRecipients() || !msg.HasContent() {
			continue
		}
		to := make([]string, 0, len(msg.To))
		for _, addr := range msg.To {
			to = append(to, addr.String())
		}
		svc.std.Printf(
			"---------- EMAIL ----------\nFrom: %s\nTo: %s\nSubject: %s\n\n%s\n---------------------------\n",
			svc.from, strings.Join(to, ", "), fmt.Sprintf("[%s] %s", svc.appName, msg.Subject), msg.Body,
		)
	}
}
