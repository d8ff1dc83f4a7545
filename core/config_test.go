package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServerConfig_BaseURL(t *testing.T) {
	tests := []struct {
		name string
		conf ServerConfig
		want string
	}{
		{name: "port only", conf: ServerConfig{Host: "localhost", Address: ":8000"}, want: "http://localhost:8000"},
		{name: "host and port", conf: ServerConfig{Host: "localhost", Address: "10.0.0.2:80"}, want: "http://10.0.0.2:80"},
		{name: "explicit", conf: ServerConfig{Address: ":8000", URL: "https://api.masomo.test/"}, want: "https://api.masomo.test"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.conf.BaseURL())
		})
	}
}
