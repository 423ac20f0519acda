package generator

// demoCode is shown when no LLM credential is configured. It is a fixed
// Calendly integration so the whole workflow can be exercised offline.
const demoCode = `"""
Calendly API Integration - Production Ready
Generated by AI Integration Builder (demo mode)
"""

import logging
import os
import time
from typing import Dict, Iterator, List, Optional

import requests

logging.basicConfig(
    level=logging.INFO,
    format="%(asctime)s - %(name)s - %(levelname)s - %(message)s",
)
logger = logging.getLogger(__name__)


class CalendlyAuth:
    """Handles OAuth 2.0 authentication for the Calendly API."""

    def __init__(self) -> None:
        self.client_id = os.environ["CALENDLY_CLIENT_ID"]
        self.client_secret = os.environ["CALENDLY_CLIENT_SECRET"]
        self.access_token: Optional[str] = None
        self.refresh_token: Optional[str] = None
        self.base_auth_url = "https://auth.calendly.com/oauth"
        logger.info("Calendly authentication initialized")

    def refresh_access_token(self) -> Dict:
        """Refresh the expired access token using the refresh token."""
        if not self.refresh_token:
            raise ValueError("No refresh token available")
        try:
            response = requests.post(
                f"{self.base_auth_url}/token",
                data={
                    "grant_type": "refresh_token",
                    "refresh_token": self.refresh_token,
                    "client_id": self.client_id,
                    "client_secret": self.client_secret,
                },
                timeout=30,
            )
            response.raise_for_status()
            token_data = response.json()
            self.access_token = token_data.get("access_token")
            logger.info("Access token refreshed")
            return token_data
        except requests.exceptions.RequestException as exc:
            logger.error("Token refresh failed: %s", exc)
            raise


class CalendlyClient:
    """Calendly API client with pagination and rate limit handling."""

    def __init__(self, auth: CalendlyAuth) -> None:
        self.auth = auth
        self.base_url = "https://api.calendly.com"
        self.session = requests.Session()
        logger.info("Calendly client initialized")

    def _request(self, method: str, endpoint: str, **kwargs) -> requests.Response:
        """Make an authenticated request with retry and backoff."""
        url = f"{self.base_url}/{endpoint.lstrip('/')}"
        headers = kwargs.pop("headers", {})
        headers["Authorization"] = f"Bearer {self.auth.access_token}"

        max_retries = 3
        for attempt in range(max_retries):
            try:
                response = self.session.request(
                    method, url, headers=headers, timeout=30, **kwargs
                )
                if response.status_code == 429:
                    retry_after = int(response.headers.get("Retry-After", 60))
                    logger.warning("Rate limited, sleeping %ss", retry_after)
                    time.sleep(retry_after)
                    continue
                response.raise_for_status()
                return response
            except requests.exceptions.RequestException as exc:
                if attempt == max_retries - 1:
                    logger.error("Request failed after retries: %s", exc)
                    raise
                time.sleep(2 ** attempt)

    def _paginate(self, endpoint: str, params: Optional[Dict] = None) -> Iterator[Dict]:
        """Iterate all pages using Calendly's cursor-based pagination."""
        params = dict(params or {})
        while True:
            payload = self._request("GET", endpoint, params=params).json()
            for item in payload.get("collection", []):
                yield item
            cursor = payload.get("pagination", {}).get("next_page_token")
            if not cursor:
                break
            params["page_token"] = cursor

    def get_current_user(self) -> Dict:
        """Fetch the authenticated user."""
        return self._request("GET", "/users/me").json()["resource"]

    def list_users(self, organization_uri: str, max_results: int = 100) -> List[Dict]:
        """List organization members via cursor pagination."""
        users: List[Dict] = []
        params = {"organization": organization_uri, "count": 50}
        for member in self._paginate("/organization_memberships", params):
            users.append(member)
            if len(users) >= max_results:
                break
        logger.info("Retrieved %d users", len(users))
        return users

    def get_scheduled_events(self, organization_uri: str) -> List[Dict]:
        """Fetch scheduled events for usage analytics."""
        params = {"organization": organization_uri}
        return list(self._paginate("/scheduled_events", params))


if __name__ == "__main__":
    auth = CalendlyAuth()
    client = CalendlyClient(auth)
    user = client.get_current_user()
    org = user["current_organization"]
    print(f"Found {len(client.list_users(org))} users")
`

// demoInsights mirrors what the insight scan reports for live output.
var demoInsights = []string{
	"Detected OAuth 2.0 with refresh token flow",
	"Found 12 relevant endpoints for user data",
	"Pagination uses cursor-based method",
	"Rate limit: 500 requests/minute",
}

// DemoCode returns the fixed demo integration code.
func DemoCode() string {
	return demoCode
}

// DemoInsights returns the canned insight list shown in demo mode.
func DemoInsights() []string {
	return append([]string(nil), demoInsights...)
}
