// Package factory builds pluggable components from configuration entries of
// the form {type, conf}. A Registry maps each type to a constructor, and
// Decode turns the raw conf map into the constructor's typed settings.
//
// The metrics sinks are wired this way:
//
//	sinks := factory.NewRegistry[metrics.MetricsSink]()
//	sinks.Register("influx", func(conf map[string]any) (metrics.MetricsSink, error) {
//	    var c struct {
//	        URL    string `json:"url"`
//	        Bucket string `json:"bucket"`
//	    }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return newInfluxSink(c.URL, c.Bucket), nil
//	})
//	sink, err := sinks.Create(factory.ModuleConfig{
//	    Type: "influx",
//	    Conf: map[string]any{"url": "http://localhost:8086", "bucket": "cpi"},
//	})
package factory
