package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/supportdeskhq/tenantcore/internal/domain"
	"github.com/supportdeskhq/tenantcore/pkg/logger"
)

// Publisher records kernel audit events: bypass entries, legacy-token
// acceptances, cross-tenant denials, resolution telemetry. Emission is
// best-effort by contract; a lost event never fails the operation.
type Publisher interface {
	Emit(ctx context.Context, event domain.AuditEvent)
}

// SQSAPI is the queue client surface used here.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSPublisher ships audit events to the audit queue for asynchronous
// indexing by the audit worker.
type SQSPublisher struct {
	client   SQSAPI
	queueURL string
	log      *logger.Logger
}

func NewSQSPublisher(client SQSAPI, queueURL string, log *logger.Logger) *SQSPublisher {
	return &SQSPublisher{client: client, queueURL: queueURL, log: log}
}

func (p *SQSPublisher) Emit(ctx context.Context, event domain.AuditEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		p.log.Errorf("marshal audit event: %v", err)
		return
	}

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		p.log.Errorf("send audit event %s: %v", event.Type, err)
	}
}

// ReceivedEvent pairs a decoded event with its queue receipt handle.
type ReceivedEvent struct {
	Event         domain.AuditEvent
	ReceiptHandle *string
}

// Receive long-polls the audit queue.
func (p *SQSPublisher) Receive(ctx context.Context, maxMessages, waitTimeSeconds int32) ([]ReceivedEvent, error) {
	out, err := p.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(p.queueURL),
		MaxNumberOfMessages: maxMessages,
		WaitTimeSeconds:     waitTimeSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("receive audit events: %w", err)
	}

	var events []ReceivedEvent
	for _, msg := range out.Messages {
		var ev domain.AuditEvent
		if err := json.Unmarshal([]byte(*msg.Body), &ev); err != nil {
			p.log.Errorf("unmarshal audit event: %v", err)
			continue
		}
		events = append(events, ReceivedEvent{Event: ev, ReceiptHandle: msg.ReceiptHandle})
	}
	return events, nil
}

// Ack deletes a processed message from the queue.
func (p *SQSPublisher) Ack(ctx context.Context, receiptHandle *string) error {
	_, err := p.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(p.queueURL),
		ReceiptHandle: receiptHandle,
	})
	return err
}

// LogPublisher writes events to the log only. Used in development and as a
// fallback when the queue is not configured.
type LogPublisher struct {
	log *logger.Logger
}

func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Emit(ctx context.Context, event domain.AuditEvent) {
	p.log.Infof("audit: type=%s tenant=%s subject=%s source=%s site=%s",
		event.Type, event.TenantID, event.SubjectID, event.Source, event.CallSite)
}
