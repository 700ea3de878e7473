package config

import "github.com/DoyleJ11/seatbus-monitor/internal/layout"

// Default is the configuration of the stock eight-seat bus: one sample
// every five seconds, about ten minutes of history.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":5000",
			TimestampPolicy: "accept",
		},
		Seats:   SeatsConfig{Count: 8},
		History: HistoryConfig{Capacity: 120},
		Layout: LayoutConfig{
			Rects: []layout.Rect{
				{X: 0.23836330219294652, Y: 0.6645828609044532, W: 0.0858, H: 0.1678},
				{X: 0.23757626260431156, Y: 0.4128449835721427, W: 0.0868, H: 0.1716},
				{X: 0.23780967326582064, Y: 0.16558325792424336, W: 0.0868, H: 0.1697},
				{X: 0.4657748481506432, Y: 0.16465501642785724, W: 0.0879, H: 0.1716},
				{X: 0.6311739655771905, Y: 0.16564499184697415, W: 0.0889, H: 0.1697},
				{X: 0.8607392705797984, Y: 0.16505500815302585, W: 0.0879, H: 0.1716},
				{X: 0.8610390385952712, Y: 0.4137549998781945, W: 0.0868, H: 0.1716},
				{X: 0.8605059278294506, Y: 0.6614450001218056, W: 0.0879, H: 0.1736},
			},
			// seats 1 and 3 are numbered the other way round on the bus
			Labels: []string{"③", "②", "①", "④", "⑤", "⑥", "⑦", "⑧"},
		},
		MQTT: MQTTConfig{
			Topic:    "seatbus/occupancy",
			ClientID: "seatbus-monitor",
		},
		Log: LogConfig{Level: "info"},
	}
}
