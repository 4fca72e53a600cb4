// Package influxdb records topology engine metrics in InfluxDB.
//
// Each load, reload and start pass writes a topology_pass point (node,
// built, failed and skipped counts plus duration); each save writes a
// topology_save point. Every point carries the site tag.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.WritePass(influxdb.PassMetric{Action: "load", Nodes: 12, Built: 12})
//
// Writes are non-blocking and batched (batch_size, flush_interval).
// Async failures are delivered to the SetOnError callback.
package influxdb
