package pubsub

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// NewLocalBus is the in-process bus used when nothing is exported.
func NewLocalBus() *gochannel.GoChannel {
	// logrus here would route watermill's own chatter into the syslog hooks
	logger := watermill.NewStdLogger(false, false)
	return gochannel.NewGoChannel(gochannel.Config{
		Persistent:                     false,
		BlockPublishUntilSubscriberAck: false,
		OutputChannelBuffer:            100,
	}, logger)
} // end NewLocalBus()
