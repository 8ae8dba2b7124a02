package invoke

import (
	"context"
	"fmt"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/coopernurse/esscale/pkg/common"
	log "github.com/mgutz/logxi/v1"
	"github.com/pkg/errors"
	"sync"
	"time"
)

const (
	sqsErrorPause    = 5 * time.Second
	sqsDeleteTimeout = 10 * time.Second
)

func NewSqsPoller(awsSession *session.Session, queueName string, visibilityTimeout int64,
	invoker *Invoker) (*SqsPoller, error) {
	if awsSession == nil {
		return nil, fmt.Errorf("sqs: cannot create sqs client - awsSession is nil")
	}
	client := sqs.New(awsSession)
	out, err := client.GetQueueUrl(&sqs.GetQueueUrlInput{QueueName: aws.String(queueName)})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == sqs.ErrCodeQueueDoesNotExist {
			return nil, fmt.Errorf("sqs: queue not found: %s", queueName)
		}
		return nil, errors.Wrapf(err, "sqs: error loading queue url for: %s", queueName)
	}
	return NewSqsPollerWithClient(client, aws.StringValue(out.QueueUrl), visibilityTimeout, invoker), nil
}

func NewSqsPollerWithClient(client sqsiface.SQSAPI, queueUrl string, visibilityTimeout int64,
	invoker *Invoker) *SqsPoller {
	return &SqsPoller{
		client:            client,
		queueUrl:          queueUrl,
		visibilityTimeout: common.DefaultInt64(visibilityTimeout, 300),
		invoker:           invoker,
	}
}

// SqsPoller reads scale requests from a queue, one message at a time. Each
// message is deleted once it has been handled, whether or not the scale
// succeeded, so a failed request is not redelivered.
type SqsPoller struct {
	client            sqsiface.SQSAPI
	queueUrl          string
	visibilityTimeout int64
	invoker           *Invoker
}

func (p *SqsPoller) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	log.Info("sqs: poller starting", "queueUrl", p.queueUrl)
	for {
		select {
		case <-ctx.Done():
			log.Info("sqs: poller shutdown gracefully", "queueUrl", p.queueUrl)
			return
		default:
			_, err := p.pollOnce(ctx)
			if err != nil && ctx.Err() == nil {
				log.Error("sqs: poll err", "err", err, "queueUrl", p.queueUrl)
				select {
				case <-ctx.Done():
				case <-time.After(sqsErrorPause):
				}
			}
		}
	}
}

// pollOnce receives at most one message and handles it. Returns the number
// of messages handled.
func (p *SqsPoller) pollOnce(ctx context.Context) (int, error) {
	if log.IsDebug() {
		log.Debug("sqs: polling queue", "queueUrl", p.queueUrl)
	}
	out, err := p.client.ReceiveMessageWithContext(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(p.queueUrl),
		MaxNumberOfMessages: aws.Int64(1),
		VisibilityTimeout:   aws.Int64(p.visibilityTimeout),
		WaitTimeSeconds:     aws.Int64(20),
	})
	if err != nil {
		return 0, err
	}

	for _, msg := range out.Messages {
		p.handle(ctx, msg)
	}
	return len(out.Messages), nil
}

func (p *SqsPoller) handle(ctx context.Context, msg *sqs.Message) {
	result, err := p.invoker.InvokeJSON(ctx, []byte(aws.StringValue(msg.Body)))
	if err != nil {
		log.Error("sqs: scale request failed", "err", err, "messageId", aws.StringValue(msg.MessageId))
	} else {
		log.Info("sqs: scale request handled", "result", result, "messageId", aws.StringValue(msg.MessageId))
	}

	// deleted even when ctx was cancelled during the scale
	delCtx, cancel := context.WithTimeout(context.Background(), sqsDeleteTimeout)
	defer cancel()
	_, err = p.client.DeleteMessageWithContext(delCtx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(p.queueUrl),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		log.Error("sqs: error deleting message", "err", err, "queueUrl", p.queueUrl)
	}
}
