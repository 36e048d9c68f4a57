// Command staff-token mints a staff access token for local development and
// smoke tests.  Production tokens come from the identity provider.
//
//	staff-token -id 7 -role WAITER -restaurant 1
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/table-service/internal/model"
	"github.com/iliyamo/table-service/internal/utils"
)

func main() {
	_ = godotenv.Load()

	id := flag.Uint64("id", 0, "staff member id")
	role := flag.String("role", model.RoleWaiter, "ADMIN, MANAGER, WAITER or KITCHEN")
	restaurant := flag.Uint64("restaurant", 0, "restaurant id")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	actor := model.Actor{ID: *id, Role: strings.ToUpper(*role), RestaurantID: *restaurant}
	switch {
	case secret == "":
		fail("JWT_SECRET is not set")
	case actor.ID == 0 || actor.RestaurantID == 0:
		fail("-id and -restaurant are required")
	case !model.ValidRole(actor.Role):
		fail("unknown role " + actor.Role)
	}

	tok, err := utils.NewAccessToken(secret, actor, *ttl)
	if err != nil {
		fail(err.Error())
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format(time.RFC3339))
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, "staff-token:", msg)
	os.Exit(2)
}
