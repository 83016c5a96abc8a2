// Package nearlot provides an embedded Go client for the nearlot surplus-produce
// marketplace: lots are stored in Redis, Valkey, SQLite or PostgreSQL and found
// by geohash proximity search.
//
//	client, _ := nearlot.New(ctx, nearlot.WithRedis("localhost:6379", ""))
//	defer client.Close()
//
//	lot, _ := client.Lots().Register(ctx, nearlot.LotDraft{
//	    MerchantID: "m-1",
//	    MerchantName: "Green Farm",
//	    WeightKg: 12.5,
//	    Latitude: 48.8566, Longitude: 2.3522,
//	})
//	nearby, _ := client.Lots().Nearby(ctx, 48.85, 2.35, 10, nearlot.StatusActive)
//
// Without WithDescriber, lots registered without a description get a
// template text built from the merchant name, weight and limit date.
package nearlot
